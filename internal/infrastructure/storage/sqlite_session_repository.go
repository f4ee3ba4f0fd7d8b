package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// SQLiteSessionRepository хранит сессии и снимки в SQLite
type SQLiteSessionRepository struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewSQLiteSessionRepository открывает базу и создаёт схему
func NewSQLiteSessionRepository(dbPath string) (*SQLiteSessionRepository, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	repo := &SQLiteSessionRepository{conn: conn}
	if err := repo.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *SQLiteSessionRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		chat_id INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		has_patient INTEGER NOT NULL DEFAULT 0,
		patient_name TEXT NOT NULL DEFAULT '',
		patient_age TEXT NOT NULL DEFAULT '',
		patient_gender TEXT NOT NULL DEFAULT '',
		patient_id TEXT NOT NULL DEFAULT '',
		radiologist_name TEXT NOT NULL DEFAULT '',
		radiologist_id TEXT NOT NULL DEFAULT '',
		last_report TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		original_path TEXT NOT NULL,
		annotated_path TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL,
		body_part TEXT NOT NULL DEFAULT '',
		confidence REAL DEFAULT 0,
		size_mm REAL DEFAULT 0,
		severity TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scans_session_id ON scans(session_id);
	`

	_, err := r.conn.Exec(schema)
	return err
}

// Close закрывает соединение
func (r *SQLiteSessionRepository) Close() error {
	return r.conn.Close()
}

// Get загружает сессию со снимками, создаёт новую если не найдена
func (r *SQLiteSessionRepository) Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	r.mu.RLock()
	session, err := r.load(ctx, sessionID)
	r.mu.RUnlock()

	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session = entity.NewSession(sessionID, chatID)
	if err := r.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SQLiteSessionRepository) load(ctx context.Context, sessionID string) (*entity.Session, error) {
	var (
		s          entity.Session
		hasPatient bool
		p          entity.Patient
	)
	err := r.conn.QueryRowContext(ctx, `
		SELECT id, chat_id, state, has_patient, patient_name, patient_age, patient_gender,
			patient_id, radiologist_name, radiologist_id, last_report, updated_at
		FROM sessions WHERE id = ?
	`, sessionID).Scan(&s.ID, &s.ChatID, &s.State, &hasPatient, &p.Name, &p.Age, &p.Gender,
		&p.PatientID, &p.RadiologistName, &p.RadiologistID, &s.LastReport, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if hasPatient {
		s.Patient = &p
	}

	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, original_path, annotated_path, label, body_part, confidence, size_mm, severity, created_at
		FROM scans WHERE session_id = ? ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scan entity.ScanResult
		if err := rows.Scan(&scan.ID, &scan.OriginalPath, &scan.AnnotatedPath, &scan.Label, &scan.BodyPart,
			&scan.Confidence, &scan.SizeMM, &scan.Severity, &scan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s.Scans = append(s.Scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scans: %w", err)
	}

	return &s, nil
}

// Save записывает сессию и заменяет её снимки в одной транзакции
func (r *SQLiteSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var p entity.Patient
	if session.Patient != nil {
		p = *session.Patient
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, chat_id, state, has_patient, patient_name, patient_age, patient_gender,
			patient_id, radiologist_name, radiologist_id, last_report, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id = excluded.chat_id,
			state = excluded.state,
			has_patient = excluded.has_patient,
			patient_name = excluded.patient_name,
			patient_age = excluded.patient_age,
			patient_gender = excluded.patient_gender,
			patient_id = excluded.patient_id,
			radiologist_name = excluded.radiologist_name,
			radiologist_id = excluded.radiologist_id,
			last_report = excluded.last_report,
			updated_at = excluded.updated_at
	`, session.ID, session.ChatID, string(session.State), session.Patient != nil, p.Name, p.Age, p.Gender,
		p.PatientID, p.RadiologistName, p.RadiologistID, session.LastReport, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("failed to clear scans: %w", err)
	}

	for i, scan := range session.Scans {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scans (id, session_id, position, original_path, annotated_path, label, body_part,
				confidence, size_mm, severity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, scan.ID, session.ID, i, scan.OriginalPath, scan.AnnotatedPath, scan.Label, string(scan.BodyPart),
			scan.Confidence, scan.SizeMM, string(scan.Severity), scan.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert scan %s: %w", scan.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateState обновляет только состояние сессии
func (r *SQLiteSessionRepository) UpdateState(ctx context.Context, sessionID string, state entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.conn.ExecContext(ctx, `UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

// Delete удаляет сессию, снимки удаляются каскадно
func (r *SQLiteSessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ port.SessionRepository = (*SQLiteSessionRepository)(nil)
