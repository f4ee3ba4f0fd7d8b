package app

import (
	"context"
	"sync"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// SessionService читает и изменяет сессии под блокировкой по ID сессии
type SessionService struct {
	repo port.SessionRepository

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionService(repo port.SessionRepository) *SessionService {
	return &SessionService{
		repo:  repo,
		locks: make(map[string]*sessionLock),
	}
}

// lock захватывает блокировку сессии и возвращает функцию освобождения
func (s *SessionService) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *SessionService) Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	return s.repo.Get(ctx, sessionID, chatID)
}

// Update читает сессию, применяет fn и сохраняет результат, всё под
// блокировкой сессии. Если fn вернула ошибку, сессия не сохраняется.
func (s *SessionService) Update(ctx context.Context, sessionID string, chatID int64, fn func(*entity.Session) error) (*entity.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID, chatID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SessionService) SetState(ctx context.Context, sessionID string, chatID int64, state entity.SessionState) (*entity.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, sessionID, state); err != nil {
		return nil, err
	}

	session.SetState(state)
	return session, nil
}

func (s *SessionService) BeginScan(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	return s.SetState(ctx, sessionID, chatID, entity.StateAwaitingPhoto)
}

func (s *SessionService) Cancel(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	return s.SetState(ctx, sessionID, chatID, entity.StateMainMenu)
}

// SavePatient сохраняет данные пациента в сессии
func (s *SessionService) SavePatient(ctx context.Context, sessionID string, chatID int64, patient *entity.Patient) (*entity.Session, error) {
	return s.Update(ctx, sessionID, chatID, func(session *entity.Session) error {
		session.Patient = patient
		return nil
	})
}

// Clear удаляет сессию со всеми снимками и отчётом и начинает новую.
// Файлы на диске остаются.
func (s *SessionService) Clear(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sessionID, chatID)
}
