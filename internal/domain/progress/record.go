// Package progress contains domain entities and business logic for per-user
// content progress: lazily created progress records, lesson video tracking,
// and the unlock rules for the content hierarchy.
// This is a pure domain layer with zero external dependencies.
package progress

import (
	"context"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is the per user × node progress record. One exists per level,
// category, and lesson a user has ever reached. Its existence implies the
// node was reachable at creation time; UnlockedAt is monotonic and records
// are never deleted.
type Record struct {
	// ID is the record's unique identifier.
	ID string

	// UserID identifies the learner.
	UserID shared.UserID

	// NodeID identifies the content node.
	NodeID shared.NodeID

	// NodeKind is the node's kind (level, category, or lesson).
	NodeKind content.NodeKind

	// UnlockedAt is set once, when the node first became reachable.
	UnlockedAt *time.Time

	// CompletedAt is set once, when the node's completion condition first held.
	CompletedAt *time.Time

	// WatchedVideos is the set of watched video IDs (lessons only).
	WatchedVideos []shared.NodeID

	// AllVideosWatched mirrors lesson completion (lessons only).
	AllVideosWatched bool

	// FinalQuizBestScore is the best final-quiz score so far (categories only).
	FinalQuizBestScore float64

	// FinalQuizPassed records whether the category's final quiz was passed.
	FinalQuizPassed bool

	// AllCategoriesCompleted records level completion (levels only).
	AllCategoriesCompleted bool

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// NewRecord creates a record for a node that just became reachable.
func NewRecord(id string, userID shared.UserID, node content.Node, now time.Time) *Record {
	unlocked := now
	return &Record{
		ID:         id,
		UserID:     userID,
		NodeID:     node.ID,
		NodeKind:   node.Kind,
		UnlockedAt: &unlocked,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Completed reports whether the node's completion condition holds,
// according to the record's kind.
func (r *Record) Completed() bool {
	switch r.NodeKind {
	case content.KindLevel:
		return r.AllCategoriesCompleted
	case content.KindCategory:
		return r.FinalQuizPassed
	case content.KindLesson:
		return r.AllVideosWatched
	default:
		return false
	}
}

// HasWatched reports whether the video is already in the watched set.
func (r *Record) HasWatched(videoID shared.NodeID) bool {
	for _, id := range r.WatchedVideos {
		if id == videoID {
			return true
		}
	}
	return false
}

// AddWatchedVideo adds a video to the watched set. Set semantics: re-adding
// is a no-op for membership. Returns true if the set changed.
func (r *Record) AddWatchedVideo(videoID shared.NodeID, now time.Time) bool {
	if r.HasWatched(videoID) {
		return false
	}
	r.WatchedVideos = append(r.WatchedVideos, videoID)
	r.UpdatedAt = now
	return true
}

// CoversAll reports whether the watched set is a superset of the given
// for-lesson video IDs.
func (r *Record) CoversAll(forLesson []content.Node) bool {
	for _, v := range forLesson {
		if !r.HasWatched(v.ID) {
			return false
		}
	}
	return true
}

// MarkLessonComplete records the false→true completion transition for a
// lesson. Returns true only on the first transition.
func (r *Record) MarkLessonComplete(now time.Time) bool {
	if r.AllVideosWatched {
		return false
	}
	r.AllVideosWatched = true
	completed := now
	r.CompletedAt = &completed
	r.UpdatedAt = now
	return true
}

// RecordQuizResult records a final-quiz attempt for a category. The best
// score only ever increases and FinalQuizPassed is monotonic.
// Returns true on the first false→true pass transition.
func (r *Record) RecordQuizResult(score float64, passed bool, now time.Time) bool {
	if score > r.FinalQuizBestScore {
		r.FinalQuizBestScore = score
	}
	r.UpdatedAt = now
	if passed && !r.FinalQuizPassed {
		r.FinalQuizPassed = true
		completed := now
		r.CompletedAt = &completed
		return true
	}
	return false
}

// MarkLevelComplete records level completion. Returns true only on the
// first transition.
func (r *Record) MarkLevelComplete(now time.Time) bool {
	if r.AllCategoriesCompleted {
		return false
	}
	r.AllCategoriesCompleted = true
	completed := now
	r.CompletedAt = &completed
	r.UpdatedAt = now
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists progress records. Implementations must enforce a
// compound unique index on (user, node) and treat duplicate-key insertion
// as shared.ErrAlreadyExists.
type Repository interface {
	// Get returns the record for a user and node, or shared.ErrNotFound.
	Get(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*Record, error)

	// GetByNodes returns the existing records for a user across several
	// nodes, keyed by node ID. Missing nodes are simply absent from the map.
	GetByNodes(ctx context.Context, userID shared.UserID, nodeIDs []shared.NodeID) (map[shared.NodeID]*Record, error)

	// CreateIfAbsent inserts the record unless one already exists for the
	// (user, node) pair. Returns false (and no error) when the record was
	// already present; concurrent first-access is expected.
	CreateIfAbsent(ctx context.Context, rec *Record) (created bool, err error)

	// Update persists the record's mutable fields.
	Update(ctx context.Context, rec *Record) error
}
