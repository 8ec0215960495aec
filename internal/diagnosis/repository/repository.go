// Package repository provides data access for bot users, the diagnostic
// question bank, and treatment records.
package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements persistence against PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a repository backed by the given pool.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// User is a bot user record.
type User struct {
	ID              int64
	DisplayName     string
	Phone           string
	TermsAcceptedAt *time.Time
	DiagnosisCount  int
	CreatedAt       time.Time
}

// Question is one entry of the diagnostic question bank.
type Question struct {
	Ordinal int
	Text    string
	Options []string
}

// Treatment is a recommended treatment for a disease at a cultivation
// location.
type Treatment struct {
	ID           int64
	Disease      string
	LocationCode int
	Title        string
	Description  string
}
