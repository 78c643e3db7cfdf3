// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    external_id VARCHAR(100) NOT NULL UNIQUE,
    total_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Ordering index for admin listings and ranking reads
CREATE INDEX IF NOT EXISTS idx_users_total_points ON users(total_points DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE EVENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create event type catalog
-- Version: 002

CREATE TABLE IF NOT EXISTS event_types (
    id UUID PRIMARY KEY,
    type_code VARCHAR(50) NOT NULL UNIQUE,
    display_name VARCHAR(100) NOT NULL,
    points INTEGER NOT NULL,
    max_daily_points INTEGER,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points CHECK (points > 0),
    CONSTRAINT valid_max_daily_points CHECK (max_daily_points IS NULL OR max_daily_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_event_types_active ON event_types(type_code) WHERE active;
`

const migration002Down = `
DROP TABLE IF EXISTS event_types;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE TRANSACTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create the append-only transaction log
-- Version: 003
-- The UNIQUE constraint on event_id is the idempotency guarantee of the
-- whole service. Rows are never updated or deleted.

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY,
    user_external_id VARCHAR(100) NOT NULL,
    event_id VARCHAR(100) NOT NULL UNIQUE,
    event_type_code VARCHAR(50) NOT NULL,
    points_earned INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points_earned CHECK (points_earned > 0)
);

-- Daily cap aggregation: (user, type, day window)
CREATE INDEX IF NOT EXISTS idx_transactions_user_type_created
    ON transactions(user_external_id, event_type_code, created_at);

-- Per-user history listings, newest first
CREATE INDEX IF NOT EXISTS idx_transactions_user_created
    ON transactions(user_external_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS transactions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create course reference data and enrollments
-- Version: 004

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    course_id VARCHAR(100) NOT NULL UNIQUE,
    title VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS groups (
    id UUID PRIMARY KEY,
    group_id VARCHAR(100) NOT NULL,
    course_ref UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_groups_course UNIQUE (group_id, course_ref)
);

CREATE TABLE IF NOT EXISTS user_course_enrollments (
    id UUID PRIMARY KEY,
    user_ref UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    course_ref UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    group_ref UUID REFERENCES groups(id) ON DELETE SET NULL,
    points_in_course INTEGER NOT NULL DEFAULT 0,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_enrollment UNIQUE (user_ref, course_ref),
    CONSTRAINT valid_points_in_course CHECK (points_in_course >= 0)
);

-- Leaderboard reads: course (and group) ordered by course points
CREATE INDEX IF NOT EXISTS idx_enrollments_course_points
    ON user_course_enrollments(course_ref, points_in_course DESC);
CREATE INDEX IF NOT EXISTS idx_enrollments_group_points
    ON user_course_enrollments(group_ref, points_in_course DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS user_course_enrollments;
DROP TABLE IF EXISTS groups;
DROP TABLE IF EXISTS courses;
`
