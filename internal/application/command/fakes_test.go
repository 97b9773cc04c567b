package command

import (
	"context"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/mastery"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// baseTime is a Monday 10:00 UTC, so league week windows are predictable.
var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// ─────────────────────────────────────────────────────────────────────────────
// Stats repository fake
// ─────────────────────────────────────────────────────────────────────────────

// fakeStatsRepo mimics the storage contract the handlers rely on: reads hand
// out clones, increments land on the stored row, and Update persists cold
// fields only — hot counters survive it, exactly like the postgres repo.
type fakeStatsRepo struct {
	stored map[shared.UserID]*stats.Ledger

	anchorCalls      int
	resetCalls       int
	weeklyResetCalls int
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{stored: make(map[shared.UserID]*stats.Ledger)}
}

func (f *fakeStatsRepo) put(l *stats.Ledger) {
	f.stored[l.UserID] = l.Clone()
}

func (f *fakeStatsRepo) GetOrCreate(_ context.Context, userID shared.UserID) (*stats.Ledger, error) {
	if l, ok := f.stored[userID]; ok {
		return l.Clone(), nil
	}
	l := stats.NewLedger(userID, baseTime)
	f.stored[userID] = l
	return l.Clone(), nil
}

func (f *fakeStatsRepo) Get(_ context.Context, userID shared.UserID) (*stats.Ledger, error) {
	l, ok := f.stored[userID]
	if !ok {
		return nil, shared.ErrLedgerNotFound
	}
	return l.Clone(), nil
}

func (f *fakeStatsRepo) Update(_ context.Context, l *stats.Ledger) error {
	s, ok := f.stored[l.UserID]
	if !ok {
		return shared.ErrLedgerNotFound
	}
	// Same column set as the postgres Update; xp, gems, energy, hearts,
	// weekly_xp, daily_goal_progress and the regen anchors stay untouched.
	c := l.Clone()
	s.StreakCount = c.StreakCount
	s.BestStreak = c.BestStreak
	s.LastActiveAt = c.LastActiveAt
	s.StreakFreezeActive = c.StreakFreezeActive
	s.StreakFreezeExpiresAt = c.StreakFreezeExpiresAt
	s.WeekendAmuletActive = c.WeekendAmuletActive
	s.XPBoostMultiplier = c.XPBoostMultiplier
	s.XPBoostExpiresAt = c.XPBoostExpiresAt
	s.CurrentLeagueTier = c.CurrentLeagueTier
	s.TotalCrowns = c.TotalCrowns
	s.SkillsMastered = c.SkillsMastered
	s.TotalCorrect = c.TotalCorrect
	s.DailyGoalXP = c.DailyGoalXP
	s.ClaimedStreakMilestones = c.ClaimedStreakMilestones
	s.UnlockedAchievements = c.UnlockedAchievements
	s.StreakRepairableUntil = c.StreakRepairableUntil
	s.StreakBeforeReset = c.StreakBeforeReset
	s.UpdatedAt = c.UpdatedAt
	return nil
}

func clampAdd(value, delta, cap int) int {
	value += delta
	if value < 0 {
		value = 0
	}
	if value > cap {
		value = cap
	}
	return value
}

func (f *fakeStatsRepo) AddEnergy(_ context.Context, userID shared.UserID, delta, cap int) (int, error) {
	l := f.stored[userID]
	l.Energy = clampAdd(l.Energy, delta, cap)
	return l.Energy, nil
}

func (f *fakeStatsRepo) AddHearts(_ context.Context, userID shared.UserID, delta, cap int) (int, error) {
	l := f.stored[userID]
	l.Hearts = clampAdd(l.Hearts, delta, cap)
	return l.Hearts, nil
}

func (f *fakeStatsRepo) AddXP(_ context.Context, userID shared.UserID, xp, gems int) (*stats.Ledger, error) {
	l := f.stored[userID]
	l.XP += xp
	l.AllTimeXP += xp
	l.WeeklyXP += xp
	l.DailyGoalProgress += xp
	l.Gems += gems
	return l.Clone(), nil
}

func (f *fakeStatsRepo) SetRegenAnchors(_ context.Context, userID shared.UserID, energyAnchor, heartAnchor *time.Time, clearEnergyAnchor, clearHeartAnchor bool) error {
	f.anchorCalls++
	l := f.stored[userID]
	if energyAnchor != nil {
		a := *energyAnchor
		l.EnergyAnchorAt = &a
	}
	if heartAnchor != nil {
		a := *heartAnchor
		l.LastHeartLostAt = &a
	}
	if clearEnergyAnchor {
		l.EnergyAnchorAt = nil
	}
	if clearHeartAnchor {
		l.LastHeartLostAt = nil
	}
	return nil
}

func (f *fakeStatsRepo) ResetDailyGoals(context.Context) (int, error) {
	f.resetCalls++
	n := 0
	for _, l := range f.stored {
		if l.DailyGoalProgress != 0 {
			l.DailyGoalProgress = 0
			n++
		}
	}
	return n, nil
}

func (f *fakeStatsRepo) ResetWeeklyXP(_ context.Context, userID shared.UserID) error {
	f.weeklyResetCalls++
	l, ok := f.stored[userID]
	if !ok {
		return shared.ErrLedgerNotFound
	}
	l.WeeklyXP = 0
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Quest repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeQuestRepo struct {
	quests map[string]*quest.Quest
}

func newFakeQuestRepo() *fakeQuestRepo {
	return &fakeQuestRepo{quests: make(map[string]*quest.Quest)}
}

func (f *fakeQuestRepo) Get(_ context.Context, questID string) (*quest.Quest, error) {
	q, ok := f.quests[questID]
	if !ok {
		return nil, shared.ErrQuestNotFound
	}
	return q, nil
}

func (f *fakeQuestRepo) ListActive(_ context.Context, userID shared.UserID) ([]*quest.Quest, error) {
	var out []*quest.Quest
	for _, q := range f.quests {
		if q.UserID == userID && q.Status.IsActive() {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestRepo) Create(_ context.Context, q *quest.Quest) error {
	f.quests[q.ID] = q
	return nil
}

func (f *fakeQuestRepo) Update(_ context.Context, q *quest.Quest) error {
	f.quests[q.ID] = q
	return nil
}

func (f *fakeQuestRepo) ExpireStale(_ context.Context, userID shared.UserID, now time.Time) (int, error) {
	n := 0
	for _, q := range f.quests {
		if q.UserID == userID && q.Status.IsActive() && q.IsExpired(now) && q.Expire(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeQuestRepo) ExpireAllStale(_ context.Context, now time.Time) (int, error) {
	n := 0
	for _, q := range f.quests {
		if q.Status.IsActive() && q.IsExpired(now) && q.Expire(now) {
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// League repository fake
// ─────────────────────────────────────────────────────────────────────────────

type participantKey struct {
	sessionID string
	userID    shared.UserID
}

type fakeLeagueRepo struct {
	sessions     map[string]*league.Session
	participants map[participantKey]*league.Participant
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{
		sessions:     make(map[string]*league.Session),
		participants: make(map[participantKey]*league.Participant),
	}
}

func (f *fakeLeagueRepo) GetActiveSession(_ context.Context, tier stats.LeagueTier) (*league.Session, error) {
	for _, s := range f.sessions {
		if s.Tier == tier && s.IsActive {
			return s, nil
		}
	}
	return nil, shared.ErrSessionNotFound
}

func (f *fakeLeagueRepo) CreateSession(_ context.Context, s *league.Session) error {
	for _, existing := range f.sessions {
		if existing.Tier == s.Tier && existing.IsActive {
			return shared.NewDomainError("league", "CreateSession", shared.ErrAlreadyExists, "active session exists")
		}
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeLeagueRepo) ListElapsedSessions(_ context.Context, now time.Time) ([]*league.Session, error) {
	var out []*league.Session
	for _, s := range f.sessions {
		if s.IsActive && s.Elapsed(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeLeagueRepo) ArchiveSession(_ context.Context, sessionID string) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return shared.ErrSessionNotFound
	}
	s.IsActive = false
	s.IsArchived = true
	return nil
}

func (f *fakeLeagueRepo) GetParticipant(_ context.Context, sessionID string, userID shared.UserID) (*league.Participant, error) {
	p, ok := f.participants[participantKey{sessionID, userID}]
	if !ok {
		return nil, shared.ErrParticipantNotFound
	}
	return p, nil
}

func (f *fakeLeagueRepo) CreateParticipantIfAbsent(_ context.Context, p *league.Participant) (bool, error) {
	key := participantKey{p.SessionID, p.UserID}
	if _, ok := f.participants[key]; ok {
		return false, nil
	}
	f.participants[key] = p
	if s, ok := f.sessions[p.SessionID]; ok {
		s.ParticipantCount++
	}
	return true, nil
}

func (f *fakeLeagueRepo) AddWeeklyXP(_ context.Context, sessionID string, userID shared.UserID, xp int) error {
	p, ok := f.participants[participantKey{sessionID, userID}]
	if !ok {
		return shared.ErrParticipantNotFound
	}
	p.WeeklyXP += xp
	return nil
}

func (f *fakeLeagueRepo) ListParticipants(_ context.Context, sessionID string) ([]*league.Participant, error) {
	var out []*league.Participant
	for key, p := range f.participants {
		if key.sessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLeagueRepo) UpdateRanks(_ context.Context, _ string, _ []*league.Participant) error {
	return nil // ranks already live on the shared pointers
}

func (f *fakeLeagueRepo) FinalizeParticipant(_ context.Context, p *league.Participant) error {
	f.participants[participantKey{p.SessionID, p.UserID}] = p
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mastery repository fake
// ─────────────────────────────────────────────────────────────────────────────

type skillKey struct {
	userID  shared.UserID
	skillID shared.SkillID
}

type fakeMasteryRepo struct {
	skills map[skillKey]*mastery.SkillProgress
}

func newFakeMasteryRepo() *fakeMasteryRepo {
	return &fakeMasteryRepo{skills: make(map[skillKey]*mastery.SkillProgress)}
}

func (f *fakeMasteryRepo) put(sp *mastery.SkillProgress) {
	f.skills[skillKey{sp.UserID, sp.SkillID}] = sp
}

func (f *fakeMasteryRepo) Get(_ context.Context, userID shared.UserID, skillID shared.SkillID) (*mastery.SkillProgress, error) {
	sp, ok := f.skills[skillKey{userID, skillID}]
	if !ok {
		return nil, shared.ErrSkillNotFound
	}
	return sp, nil
}

func (f *fakeMasteryRepo) GetOrCreate(_ context.Context, userID shared.UserID, skillID shared.SkillID, id string) (*mastery.SkillProgress, error) {
	key := skillKey{userID, skillID}
	if sp, ok := f.skills[key]; ok {
		return sp, nil
	}
	sp := mastery.NewSkillProgress(id, userID, skillID, baseTime)
	f.skills[key] = sp
	return sp, nil
}

func (f *fakeMasteryRepo) Update(_ context.Context, sp *mastery.SkillProgress) error {
	f.put(sp)
	return nil
}

func (f *fakeMasteryRepo) ListByUser(_ context.Context, userID shared.UserID) ([]*mastery.SkillProgress, error) {
	var out []*mastery.SkillProgress
	for key, sp := range f.skills {
		if key.userID == userID {
			out = append(out, sp)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress repository fake
// ─────────────────────────────────────────────────────────────────────────────

type recordKey struct {
	userID shared.UserID
	nodeID shared.NodeID
}

type fakeProgressRepo struct {
	records map[recordKey]*progress.Record
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[recordKey]*progress.Record)}
}

func (f *fakeProgressRepo) put(rec *progress.Record) {
	f.records[recordKey{rec.UserID, rec.NodeID}] = rec
}

func (f *fakeProgressRepo) Get(_ context.Context, userID shared.UserID, nodeID shared.NodeID) (*progress.Record, error) {
	rec, ok := f.records[recordKey{userID, nodeID}]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return rec, nil
}

func (f *fakeProgressRepo) GetByNodes(_ context.Context, userID shared.UserID, nodeIDs []shared.NodeID) (map[shared.NodeID]*progress.Record, error) {
	out := make(map[shared.NodeID]*progress.Record)
	for _, id := range nodeIDs {
		if rec, ok := f.records[recordKey{userID, id}]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) CreateIfAbsent(_ context.Context, rec *progress.Record) (bool, error) {
	key := recordKey{rec.UserID, rec.NodeID}
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = rec
	return true, nil
}

func (f *fakeProgressRepo) Update(_ context.Context, rec *progress.Record) error {
	f.put(rec)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Content store fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeContentStore struct {
	nodes map[shared.NodeID]*content.Node
}

func newFakeContentStore(nodes ...content.Node) *fakeContentStore {
	f := &fakeContentStore{nodes: make(map[shared.NodeID]*content.Node)}
	for i := range nodes {
		n := nodes[i]
		f.nodes[n.ID] = &n
	}
	return f
}

func (f *fakeContentStore) Get(_ context.Context, id shared.NodeID) (*content.Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, shared.ErrNodeNotFound
	}
	return n, nil
}

func (f *fakeContentStore) ListChildren(_ context.Context, parentID shared.NodeID) ([]content.Node, error) {
	var out []content.Node
	for _, n := range f.nodes {
		if n.ParentID == parentID && n.Active {
			out = append(out, *n)
		}
	}
	content.SortByOrder(out)
	return out, nil
}

func (f *fakeContentStore) ListLevels(_ context.Context) ([]content.Node, error) {
	var out []content.Node
	for _, n := range f.nodes {
		if n.Kind == content.KindLevel && n.Active {
			out = append(out, *n)
		}
	}
	content.SortByOrder(out)
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event / notification recorders
// ─────────────────────────────────────────────────────────────────────────────

type eventRecorder struct {
	events []shared.Event
}

func (r *eventRecorder) Publish(event shared.Event) error {
	r.events = append(r.events, event)
	return nil
}

// ofType returns the published events of one type, in order.
func (r *eventRecorder) ofType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type sinkRecorder struct {
	requests []notification.Request
}

func (r *sinkRecorder) Create(_ context.Context, req notification.Request) error {
	r.requests = append(r.requests, req)
	return nil
}

func (r *sinkRecorder) ofType(t notification.Type) []notification.Request {
	var out []notification.Request
	for _, req := range r.requests {
		if req.Type == t {
			out = append(out, req)
		}
	}
	return out
}

// fakeStandings records StandingsCache calls.
type fakeStandings struct {
	updates []string // "sessionID/userID"
	cleared []string
}

func (f *fakeStandings) UpdateScore(_ context.Context, sessionID string, userID shared.UserID, _ int) error {
	f.updates = append(f.updates, sessionID+"/"+userID.String())
	return nil
}

func (f *fakeStandings) Clear(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}
