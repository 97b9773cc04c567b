// Package postgres implements the PostgreSQL persistence layer for TilHub Core.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CONTENT AND PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create content tree and progress records
-- Version: 001

-- Content tree: levels, categories, lessons, videos.
CREATE TABLE IF NOT EXISTS content_nodes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind VARCHAR(20) NOT NULL,
    parent_id UUID REFERENCES content_nodes(id),
    sibling_order INTEGER NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    title VARCHAR(200) NOT NULL,
    for_lesson BOOLEAN NOT NULL DEFAULT FALSE,

    CONSTRAINT valid_kind CHECK (kind IN ('level', 'category', 'lesson', 'video')),
    CONSTRAINT valid_order CHECK (sibling_order >= 1)
);

CREATE INDEX IF NOT EXISTS idx_content_nodes_parent ON content_nodes(parent_id, sibling_order);
CREATE INDEX IF NOT EXISTS idx_content_nodes_kind ON content_nodes(kind) WHERE active;

-- Per-user progress records, one row per (user, node) pair.
CREATE TABLE IF NOT EXISTS progress_records (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    node_id UUID NOT NULL REFERENCES content_nodes(id),
    node_kind VARCHAR(20) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE,
    completed_at TIMESTAMP WITH TIME ZONE,
    watched_videos JSONB NOT NULL DEFAULT '[]'::jsonb,
    all_videos_watched BOOLEAN NOT NULL DEFAULT FALSE,
    final_quiz_best_score DECIMAL(4,3) NOT NULL DEFAULT 0,
    final_quiz_passed BOOLEAN NOT NULL DEFAULT FALSE,
    all_categories_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_progress_user_node UNIQUE (user_id, node_id),
    CONSTRAINT valid_quiz_score CHECK (final_quiz_best_score >= 0 AND final_quiz_best_score <= 1)
);

CREATE INDEX IF NOT EXISTS idx_progress_records_user ON progress_records(user_id);
CREATE INDEX IF NOT EXISTS idx_progress_records_completed ON progress_records(user_id) WHERE completed_at IS NOT NULL;
`

const migration001Down = `
DROP TABLE IF EXISTS progress_records;
DROP TABLE IF EXISTS content_nodes;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STATS LEDGERS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create per-user stats ledgers
-- Version: 002

CREATE TABLE IF NOT EXISTS stats_ledgers (
    user_id UUID PRIMARY KEY,
    xp INTEGER NOT NULL DEFAULT 0,
    all_time_xp INTEGER NOT NULL DEFAULT 0,
    weekly_xp INTEGER NOT NULL DEFAULT 0,
    gems INTEGER NOT NULL DEFAULT 0,
    energy INTEGER NOT NULL DEFAULT 25,
    hearts INTEGER NOT NULL DEFAULT 5,
    streak_count INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    last_active_at TIMESTAMP WITH TIME ZONE,
    energy_anchor_at TIMESTAMP WITH TIME ZONE,
    last_heart_lost_at TIMESTAMP WITH TIME ZONE,
    streak_freeze_active BOOLEAN NOT NULL DEFAULT FALSE,
    streak_freeze_expires_at TIMESTAMP WITH TIME ZONE,
    weekend_amulet_active BOOLEAN NOT NULL DEFAULT FALSE,
    xp_boost_multiplier DECIMAL(4,2) NOT NULL DEFAULT 1.00,
    xp_boost_expires_at TIMESTAMP WITH TIME ZONE,
    current_league_tier VARCHAR(20) NOT NULL DEFAULT 'bronze',
    total_crowns INTEGER NOT NULL DEFAULT 0,
    skills_mastered INTEGER NOT NULL DEFAULT 0,
    total_correct INTEGER NOT NULL DEFAULT 0,
    daily_goal_xp INTEGER NOT NULL DEFAULT 50,
    daily_goal_progress INTEGER NOT NULL DEFAULT 0,
    claimed_streak_milestones JSONB NOT NULL DEFAULT '[]'::jsonb,
    unlocked_achievements JSONB NOT NULL DEFAULT '[]'::jsonb,
    streak_repairable_until TIMESTAMP WITH TIME ZONE,
    streak_before_reset INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_energy CHECK (energy >= 0 AND energy <= 25),
    CONSTRAINT valid_hearts CHECK (hearts >= 0 AND hearts <= 5),
    CONSTRAINT valid_tier CHECK (current_league_tier IN ('bronze', 'silver', 'gold', 'sapphire', 'ruby', 'diamond')),
    CONSTRAINT valid_boost CHECK (xp_boost_multiplier >= 1.00)
);

CREATE INDEX IF NOT EXISTS idx_stats_ledgers_weekly_xp ON stats_ledgers(weekly_xp DESC);
CREATE INDEX IF NOT EXISTS idx_stats_ledgers_tier ON stats_ledgers(current_league_tier);
`

const migration002Down = `
DROP TABLE IF EXISTS stats_ledgers;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE LEAGUES, QUESTS AND MASTERY
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create weekly leagues, daily quests and crown mastery
-- Version: 003

CREATE TABLE IF NOT EXISTS league_sessions (
    id UUID PRIMARY KEY,
    tier VARCHAR(20) NOT NULL,
    start_date TIMESTAMP WITH TIME ZONE NOT NULL,
    end_date TIMESTAMP WITH TIME ZONE NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_archived BOOLEAN NOT NULL DEFAULT FALSE,
    participant_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_session_tier CHECK (tier IN ('bronze', 'silver', 'gold', 'sapphire', 'ruby', 'diamond'))
);

-- One active session per tier at a time.
CREATE UNIQUE INDEX IF NOT EXISTS uq_league_sessions_active_tier
    ON league_sessions(tier) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_league_sessions_elapsed
    ON league_sessions(end_date) WHERE is_active;

CREATE TABLE IF NOT EXISTS league_participants (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES league_sessions(id),
    user_id UUID NOT NULL,
    weekly_xp INTEGER NOT NULL DEFAULT 0,
    rank INTEGER NOT NULL DEFAULT 0,
    promoted BOOLEAN NOT NULL DEFAULT FALSE,
    demoted BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_participant_session_user UNIQUE (session_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_league_participants_standings
    ON league_participants(session_id, weekly_xp DESC, joined_at ASC);

CREATE TABLE IF NOT EXISTS daily_quests (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    quest_type VARCHAR(30) NOT NULL,
    target INTEGER NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    reward INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    description VARCHAR(200) NOT NULL,
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_quest_status CHECK (status IN ('pending', 'in_progress', 'completed', 'claimed', 'expired')),
    CONSTRAINT valid_quest_progress CHECK (progress >= 0 AND progress <= target)
);

CREATE INDEX IF NOT EXISTS idx_daily_quests_active
    ON daily_quests(user_id) WHERE status IN ('pending', 'in_progress');
CREATE INDEX IF NOT EXISTS idx_daily_quests_stale
    ON daily_quests(expires_at) WHERE status IN ('pending', 'in_progress', 'completed');

CREATE TABLE IF NOT EXISTS skill_progress (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    skill_id UUID NOT NULL,
    crown_level INTEGER NOT NULL DEFAULT 0,
    current_xp INTEGER NOT NULL DEFAULT 0,
    total_xp INTEGER NOT NULL DEFAULT 0,
    mistake_count INTEGER NOT NULL DEFAULT 0,
    practice_count INTEGER NOT NULL DEFAULT 0,
    is_legendary BOOLEAN NOT NULL DEFAULT FALSE,
    legendary_attempts INTEGER NOT NULL DEFAULT 0,
    first_crown_at TIMESTAMP WITH TIME ZONE,
    last_crown_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_skill_user UNIQUE (user_id, skill_id),
    CONSTRAINT valid_crown_level CHECK (crown_level >= 0 AND crown_level <= 5)
);

CREATE INDEX IF NOT EXISTS idx_skill_progress_user ON skill_progress(user_id);
`

const migration003Down = `
DROP TABLE IF EXISTS skill_progress;
DROP TABLE IF EXISTS daily_quests;
DROP TABLE IF EXISTS league_participants;
DROP TABLE IF EXISTS league_sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create notification outbox
-- Version: 004

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    notification_type VARCHAR(40) NOT NULL,
    title VARCHAR(200) NOT NULL,
    message TEXT NOT NULL,
    related_entity_kind VARCHAR(30),
    related_entity_id VARCHAR(64),
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user
    ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(user_id) WHERE NOT is_read;
`

const migration004Down = `
DROP TABLE IF EXISTS notifications;
`
