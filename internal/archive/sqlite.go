// Package archive persists terminal assessment sessions to SQLite for audit.
// Live sessions stay in the in-memory store; only sessions that reached
// COMPLETED, REJECTED or ERROR are written here.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/medpipe/orchestrator/internal/domain"
)

// SQLiteArchive implements the terminal-session archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (or creates) the archive database.
func NewSQLiteArchive(dsn string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	a := &SQLiteArchive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return a, nil
}

// Close closes the underlying database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

func (a *SQLiteArchive) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS archived_sessions (
			session_id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			status TEXT NOT NULL,
			approval_status TEXT,
			risk_level TEXT,
			exam_priority TEXT,
			review_priority TEXT,
			reprocessing_count INTEGER NOT NULL DEFAULT 0,
			start_time DATETIME,
			archived_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_archived_patient ON archived_sessions(patient_id, archived_at)`,
	}

	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save writes a terminal session. Re-archiving the same session overwrites
// the previous row.
func (a *SQLiteArchive) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO archived_sessions
			(session_id, patient_id, status, approval_status, risk_level,
			 exam_priority, review_priority, reprocessing_count, start_time, archived_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID,
		session.PatientID,
		string(session.Status),
		string(session.ApprovalStatus),
		session.RiskLevel,
		session.ExamPriority,
		session.ReviewPriority,
		session.ReprocessingCount,
		session.StartTime,
		time.Now(),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert archived session: %w", err)
	}
	return nil
}

// Get returns an archived session, or nil when the identifier is unknown.
func (a *SQLiteArchive) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var data string
	err := a.db.QueryRowContext(ctx,
		`SELECT data FROM archived_sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query archived session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived session: %w", err)
	}
	return &session, nil
}

// ListByPatient returns archived sessions for a patient, newest first.
func (a *SQLiteArchive) ListByPatient(ctx context.Context, patientID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT data FROM archived_sessions
		WHERE patient_id = ?
		ORDER BY archived_at DESC
		LIMIT ?`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan archived session: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archived session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
