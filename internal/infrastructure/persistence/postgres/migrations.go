package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE RULE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create rule catalog and trigger audit log
-- Version: 001

-- Declarative motivation rules. Conditions and actions are stored as JSONB
-- lists; malformed content degrades to an empty list at read time.
CREATE TABLE IF NOT EXISTS reward_rules (
    id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    rule_type VARCHAR(30) NOT NULL,
    conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
    actions JSONB NOT NULL DEFAULT '[]'::jsonb,
    priority INTEGER NOT NULL DEFAULT 0,
    cooldown_hours INTEGER NOT NULL DEFAULT 24,
    max_trigger_count INTEGER,
    is_global BOOLEAN NOT NULL DEFAULT FALSE,
    course_id VARCHAR(100),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_rule_type CHECK (rule_type IN ('milestone', 'streak', 'comeback', 'performance', 'custom')),
    CONSTRAINT valid_cooldown CHECK (cooldown_hours > 0),
    CONSTRAINT valid_trigger_limit CHECK (max_trigger_count IS NULL OR max_trigger_count > 0),
    CONSTRAINT course_scope CHECK (is_global OR course_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_reward_rules_active_priority ON reward_rules(priority DESC) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_reward_rules_course ON reward_rules(course_id) WHERE course_id IS NOT NULL;

-- Append-only audit trail of rule firings. Cooldown and trigger-limit
-- checks read exclusively from this table.
CREATE TABLE IF NOT EXISTS trigger_logs (
    id UUID PRIMARY KEY,
    rule_id VARCHAR(100) NOT NULL REFERENCES reward_rules(id) ON DELETE CASCADE,
    user_id VARCHAR(100) NOT NULL,
    course_id VARCHAR(100),
    signals JSONB NOT NULL,
    actions JSONB NOT NULL DEFAULT '[]'::jsonb,
    triggered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_trigger_logs_rule_user ON trigger_logs(rule_id, user_id, triggered_at DESC);
CREATE INDEX IF NOT EXISTS idx_trigger_logs_user ON trigger_logs(user_id, triggered_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS trigger_logs;
DROP TABLE IF EXISTS reward_rules;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE WALLETS AND LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create coin wallets and their transaction ledger
-- Version: 002

CREATE TABLE IF NOT EXISTS coin_wallets (
    user_id VARCHAR(100) PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0,
    total_earned INTEGER NOT NULL DEFAULT 0,
    total_spent INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_balance CHECK (balance >= 0),
    CONSTRAINT non_negative_earned CHECK (total_earned >= 0),
    CONSTRAINT non_negative_spent CHECK (total_spent >= 0)
);

-- Every balance change is backed by exactly one ledger row carrying the
-- post-change balance. Rows are immutable.
CREATE TABLE IF NOT EXISTS coin_transactions (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL REFERENCES coin_wallets(user_id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    post_balance INTEGER NOT NULL,
    reason VARCHAR(200) NOT NULL,
    rule_id VARCHAR(100),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_zero_amount CHECK (amount <> 0)
);

CREATE INDEX IF NOT EXISTS idx_coin_transactions_user ON coin_transactions(user_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS coin_transactions;
DROP TABLE IF EXISTS coin_wallets;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE REWARD ARTIFACTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create motivation cards, scholarships, grants and mystery boxes
-- Version: 003

CREATE TABLE IF NOT EXISTS motivation_cards (
    id UUID PRIMARY KEY,
    public_id UUID NOT NULL UNIQUE,
    user_id VARCHAR(100) NOT NULL,
    card_type VARCHAR(30) NOT NULL,
    title VARCHAR(200) NOT NULL,
    subtitle VARCHAR(500) NOT NULL,
    stats JSONB NOT NULL DEFAULT '{}'::jsonb,
    rule_id VARCHAR(100),
    viewed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_motivation_cards_user ON motivation_cards(user_id, created_at DESC);

-- Platform-owned scholarship catalog; the engine only reads it.
CREATE TABLE IF NOT EXISTS scholarships (
    id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    discount_percent INTEGER NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_discount CHECK (discount_percent > 0 AND discount_percent <= 100)
);

CREATE TABLE IF NOT EXISTS scholarship_grants (
    id UUID PRIMARY KEY,
    scholarship_id VARCHAR(100) NOT NULL REFERENCES scholarships(id),
    user_id VARCHAR(100) NOT NULL,
    rule_id VARCHAR(100),
    redeemed BOOLEAN NOT NULL DEFAULT FALSE,
    granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scholarship_grants_user ON scholarship_grants(user_id, granted_at DESC);

-- Reward content is rolled at creation and never changes afterwards;
-- opening only flips the flag.
CREATE TABLE IF NOT EXISTS mystery_boxes (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    reward_type VARCHAR(30) NOT NULL,
    reward_amount INTEGER NOT NULL DEFAULT 0,
    reward_label VARCHAR(100) NOT NULL DEFAULT '',
    rule_id VARCHAR(100),
    opened BOOLEAN NOT NULL DEFAULT FALSE,
    opened_at TIMESTAMP WITH TIME ZONE,
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_reward_type CHECK (reward_type IN ('coins', 'scholarship', 'badge', 'coupon'))
);

CREATE INDEX IF NOT EXISTS idx_mystery_boxes_user_unopened ON mystery_boxes(user_id, created_at DESC) WHERE NOT opened;
`

const migration003Down = `
DROP TABLE IF EXISTS mystery_boxes;
DROP TABLE IF EXISTS scholarship_grants;
DROP TABLE IF EXISTS scholarships;
DROP TABLE IF EXISTS motivation_cards;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE STREAKS AND NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create activity streaks, nudge logs and notifications
-- Version: 004

CREATE TABLE IF NOT EXISTS activity_streaks (
    user_id VARCHAR(100) PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    total_active_days INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMP WITH TIME ZONE,
    streak_start_date TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_streak CHECK (current_streak >= 0),
    CONSTRAINT longest_covers_current CHECK (longest_streak >= current_streak)
);

CREATE TABLE IF NOT EXISTS nudge_logs (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    nudge_type VARCHAR(30) NOT NULL,
    message TEXT NOT NULL,
    rule_id VARCHAR(100),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_nudge_logs_user ON nudge_logs(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    title VARCHAR(200) NOT NULL,
    message TEXT NOT NULL,
    kind VARCHAR(20) NOT NULL,
    rule_id VARCHAR(100),
    read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('reward', 'nudge', 'system'))
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, created_at DESC) WHERE NOT read;
`

const migration004Down = `
DROP TABLE IF EXISTS notifications;
DROP TABLE IF EXISTS nudge_logs;
DROP TABLE IF EXISTS activity_streaks;
`
