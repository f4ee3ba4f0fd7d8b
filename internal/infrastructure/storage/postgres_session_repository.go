package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	chat_id BIGINT NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	patient JSONB,
	last_report TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position INT NOT NULL,
	original_path TEXT NOT NULL,
	annotated_path TEXT NOT NULL DEFAULT '',
	label TEXT NOT NULL,
	body_part TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	size_mm DOUBLE PRECISION NOT NULL DEFAULT 0,
	severity TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_session_id ON scans(session_id);
`

// PostgresSessionRepository хранит сессии в PostgreSQL
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository подключается к базе и создаёт схему
func NewPostgresSessionRepository(ctx context.Context, databaseURL string) (*PostgresSessionRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresSessionRepository{pool: pool}, nil
}

// Close закрывает пул соединений
func (r *PostgresSessionRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Get загружает сессию, создаёт новую если не найдена
func (r *PostgresSessionRepository) Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	var (
		s       entity.Session
		state   string
		patient *entity.Patient
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, chat_id, state, patient, last_report, updated_at FROM sessions WHERE id = $1`,
		sessionID).Scan(&s.ID, &s.ChatID, &state, &patient, &s.LastReport, &s.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		session := entity.NewSession(sessionID, chatID)
		if err := r.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.State = entity.SessionState(state)
	s.Patient = patient

	rows, err := r.pool.Query(ctx, `
		SELECT id, original_path, annotated_path, label, body_part, confidence, size_mm, severity, created_at
		FROM scans WHERE session_id = $1 ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scan           entity.ScanResult
			part, severity   string
		)
		if err := rows.Scan(&scan.ID, &scan.OriginalPath, &scan.AnnotatedPath, &scan.Label, &part,
			&scan.Confidence, &scan.SizeMM, &severity, &scan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scan.BodyPart = entity.BodyPart(part)
		scan.Severity = entity.Severity(severity)
		s.Scans = append(s.Scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scans: %w", err)
	}

	return &s, nil
}

// Save записывает сессию и заменяет её снимки в одной транзакции
func (r *PostgresSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, chat_id, state, patient, last_report, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				chat_id = EXCLUDED.chat_id,
				state = EXCLUDED.state,
				patient = EXCLUDED.patient,
				last_report = EXCLUDED.last_report,
				updated_at = EXCLUDED.updated_at`,
			session.ID, session.ChatID, string(session.State), session.Patient, session.LastReport, updatedAt)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM scans WHERE session_id = $1`, session.ID); err != nil {
			return fmt.Errorf("failed to clear scans: %w", err)
		}

		batch := &pgx.Batch{}
		for i, scan := range session.Scans {
			batch.Queue(`
				INSERT INTO scans (id, session_id, position, original_path, annotated_path, label, body_part,
					confidence, size_mm, severity, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				scan.ID, session.ID, i, scan.OriginalPath, scan.AnnotatedPath, scan.Label, string(scan.BodyPart),
				scan.Confidence, scan.SizeMM, string(scan.Severity), scan.CreatedAt)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert scans: %w", err)
		}
		return nil
	})
}

// UpdateState обновляет только состояние сессии
func (r *PostgresSessionRepository) UpdateState(ctx context.Context, sessionID string, state entity.SessionState) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET state = $1, updated_at = $2 WHERE id = $3`,
		string(state), time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

// Delete удаляет сессию, снимки удаляются каскадно
func (r *PostgresSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ port.SessionRepository = (*PostgresSessionRepository)(nil)
