package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE INTERNS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create interns table
-- Version: 001

CREATE TABLE IF NOT EXISTS interns (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    unique_id VARCHAR(40) NOT NULL UNIQUE,
    full_name VARCHAR(120) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    mobile VARCHAR(20) NOT NULL UNIQUE,
    dob DATE,
    domain VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'applied',
    joining_date DATE,
    duration_label VARCHAR(30) NOT NULL DEFAULT '',
    extended_days INTEGER NOT NULL DEFAULT 0,
    certificate_number VARCHAR(30),
    certificate_status VARCHAR(20),
    certificate_issued_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('applied', 'selected', 'rejected', 'active', 'inactive', 'completed')),
    CONSTRAINT valid_certificate_status CHECK (certificate_status IS NULL OR certificate_status IN ('pending', 'issued', 'rejected')),
    CONSTRAINT non_negative_extension CHECK (extended_days >= 0),
    -- A certificate number implies issued status.
    CONSTRAINT number_implies_issued CHECK (certificate_number IS NULL OR certificate_status = 'issued')
);

-- Unique partial index closes the allocator's read-then-write race at the
-- store level: a duplicate insert surfaces as a unique violation.
CREATE UNIQUE INDEX IF NOT EXISTS idx_interns_certificate_number
    ON interns(certificate_number) WHERE certificate_number IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_interns_status ON interns(status);
CREATE INDEX IF NOT EXISTS idx_interns_joining_date ON interns(joining_date);
`

const migration001Down = `
DROP TABLE IF EXISTS interns;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create feedback table
-- Version: 002
-- One feedback record per intern; the snapshot columns are frozen at
-- submission time and never updated from the live intern record.

CREATE TABLE IF NOT EXISTS feedback (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    unique_id VARCHAR(40) NOT NULL UNIQUE,
    full_name VARCHAR(120) NOT NULL,
    email VARCHAR(255) NOT NULL,
    mobile VARCHAR(20) NOT NULL,
    dob DATE,
    domain VARCHAR(100) NOT NULL DEFAULT '',
    duration_label VARCHAR(30) NOT NULL DEFAULT '',
    start_month VARCHAR(30) NOT NULL DEFAULT '',
    end_month VARCHAR(30) NOT NULL DEFAULT '',
    rating INTEGER NOT NULL,
    comments TEXT NOT NULL DEFAULT '',
    certificate_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    certificate_number VARCHAR(30),
    certificate_issued_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_certificate_status CHECK (certificate_status IN ('pending', 'issued', 'rejected')),
    CONSTRAINT valid_rating CHECK (rating >= 1 AND rating <= 5)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_feedback_certificate_number
    ON feedback(certificate_number) WHERE certificate_number IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_feedback_certificate_status ON feedback(certificate_status);
`

const migration002Down = `
DROP TABLE IF EXISTS feedback;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_interns",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_feedback",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
