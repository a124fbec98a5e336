package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create the five domain tables. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		birth_date DATE NOT NULL,
		rg TEXT NOT NULL DEFAULT '',
		cpf TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		registration_data TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_cpf ON students (cpf) WHERE cpf <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_students_name_birth ON students (full_name, birth_date)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects (id),
		name TEXT NOT NULL,
		school_year INTEGER NOT NULL,
		schedule TEXT NOT NULL,
		total_slots INTEGER NOT NULL CHECK (total_slots > 0),
		instructor_name TEXT NOT NULL DEFAULT '',
		instructor_cpf TEXT NOT NULL DEFAULT '',
		instructor_rg TEXT NOT NULL DEFAULT '',
		instructor_birth_date DATE NULL,
		instructor_paid BOOLEAN NOT NULL DEFAULT FALSE,
		instructor_compensation NUMERIC(12,2) NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_project_year ON classes (project_id, school_year)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students (id),
		class_id TEXT NOT NULL REFERENCES classes (id),
		enrolled_on DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_class ON enrollments (class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments (student_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
