package storage

import (
	"context"
	"sync"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище сессий
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
}

// NewMemorySessionRepository создаёт новое in-memory хранилище
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entity.Session),
	}
}

// Get возвращает копию сессии по ID, создаёт новую если не найдена
func (r *MemorySessionRepository) Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	r.mu.RLock()
	session, exists := r.sessions[sessionID]
	r.mu.RUnlock()

	if exists {
		return cloneSession(session), nil
	}

	// Создаём новую сессию
	newSession := entity.NewSession(sessionID, chatID)

	r.mu.Lock()
	if existing, ok := r.sessions[sessionID]; ok {
		r.mu.Unlock()
		return cloneSession(existing), nil
	}
	r.sessions[sessionID] = newSession
	r.mu.Unlock()

	return cloneSession(newSession), nil
}

// Save сохраняет копию сессии
func (r *MemorySessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	r.sessions[session.ID] = cloneSession(session)
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние сессии
func (r *MemorySessionRepository) UpdateState(ctx context.Context, sessionID string, state entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, exists := r.sessions[sessionID]; exists {
		session.SetState(state)
	}

	return nil
}

// Delete удаляет сессию
func (r *MemorySessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	return nil
}

// cloneSession копия, чтобы вызывающий не менял хранимое состояние напрямую
func cloneSession(s *entity.Session) *entity.Session {
	c := *s
	if s.Patient != nil {
		p := *s.Patient
		c.Patient = &p
	}
	if s.Scans != nil {
		c.Scans = append([]entity.ScanResult(nil), s.Scans...)
	}
	return &c
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
