package port

import (
	"context"

	"ortho-scan/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий
type SessionRepository interface {
	// Get возвращает сессию по ID, создаёт новую если не найдена
	Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error)

	// Save сохраняет сессию целиком вместе со снимками
	Save(ctx context.Context, session *entity.Session) error

	// UpdateState обновляет состояние сессии
	UpdateState(ctx context.Context, sessionID string, state entity.SessionState) error

	// Delete удаляет сессию
	Delete(ctx context.Context, sessionID string) error
}
