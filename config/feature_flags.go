package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports per-user consistent-hash bucketing, time-based activation,
// and per-user overrides for debugging.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string // learner ID
	IsAdmin bool   // is admin user
}

// Predefined feature flag names.
const (
	// === Streak Features ===
	FeatureStreakFreeze  = "streak.freeze"  // Streak freeze consumable
	FeatureStreakAmulet  = "streak.amulet"  // Weekend amulet
	FeatureStreakRepair  = "streak.repair"  // Gem-paid streak repair
	FeatureStreakBonuses = "streak.bonuses" // Milestone gem rewards

	// === League Features ===
	FeatureLeagues          = "league.sessions"  // Weekly league competition
	FeatureLeagueStandings  = "league.standings" // Live standings from Redis
	FeatureLeaguePromotions = "league.movements" // Promotion/demotion notifications

	// === Quest Features ===
	FeatureDailyQuests = "quest.daily"  // Daily quest generation
	FeatureQuestClaims = "quest.claims" // Quest reward claiming

	// === Mastery Features ===
	FeatureCrownMastery     = "mastery.crowns"    // Crown levels per skill
	FeatureLegendaryAttempt = "mastery.legendary" // Legendary (level 5) challenges

	// === Notification Features ===
	FeatureNotifyUnlocks   = "notify.unlocks"    // Content unlocked
	FeatureNotifyStreaks   = "notify.streaks"    // Streak milestones
	FeatureNotifyLeagues   = "notify.leagues"    // League results
	FeatureNotifyDailyGoal = "notify.daily_goal" // Daily goal reached
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Streak features - core loop, enabled by default
	ff.features[FeatureStreakFreeze] = &Feature{
		Name:           FeatureStreakFreeze,
		Description:    "Streak freeze consumable",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureStreakAmulet] = &Feature{
		Name:           FeatureStreakAmulet,
		Description:    "Weekend amulet protecting Sat/Sun gaps",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureStreakRepair] = &Feature{
		Name:           FeatureStreakRepair,
		Description:    "Gem-paid streak repair within the repair window",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureStreakBonuses] = &Feature{
		Name:           FeatureStreakBonuses,
		Description:    "Gem rewards at streak milestones",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// League features
	ff.features[FeatureLeagues] = &Feature{
		Name:           FeatureLeagues,
		Description:    "Weekly league sessions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeagueStandings] = &Feature{
		Name:           FeatureLeagueStandings,
		Description:    "Live standings served from Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaguePromotions] = &Feature{
		Name:           FeatureLeaguePromotions,
		Description:    "Promotion and demotion notifications",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Quest features
	ff.features[FeatureDailyQuests] = &Feature{
		Name:           FeatureDailyQuests,
		Description:    "Daily quest generation",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureQuestClaims] = &Feature{
		Name:           FeatureQuestClaims,
		Description:    "Quest reward claiming",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Mastery features
	ff.features[FeatureCrownMastery] = &Feature{
		Name:           FeatureCrownMastery,
		Description:    "Crown levels per skill",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLegendaryAttempt] = &Feature{
		Name:           FeatureLegendaryAttempt,
		Description:    "Legendary challenge for the fifth crown",
		Enabled:        true,
		RolloutPercent: 50, // Gradual rollout
	}

	// Notification features - carefully tuned to avoid spam
	ff.features[FeatureNotifyUnlocks] = &Feature{
		Name:           FeatureNotifyUnlocks,
		Description:    "Notify when new content unlocks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyStreaks] = &Feature{
		Name:           FeatureNotifyStreaks,
		Description:    "Notify on streak milestones",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyLeagues] = &Feature{
		Name:           FeatureNotifyLeagues,
		Description:    "Notify on weekly league results",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyDailyGoal] = &Feature{
		Name:           FeatureNotifyDailyGoal,
		Description:    "Notify when daily goal is reached",
		Enabled:        false, // Can be noisy - off until tuned
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_STREAK_REPAIR=true
// Example: FEATURE_MASTERY_LEGENDARY=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "streak.repair" -> "FEATURE_STREAK_REPAIR"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID string, featureName string, percent int) bool {
	// Create a consistent hash for this user+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
