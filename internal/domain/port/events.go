package port

import "ortho-scan/internal/domain/entity"

// EventPublisher рассылает события обработки подписчикам сессии.
// Publish не должен блокировать обработку.
type EventPublisher interface {
	Publish(event entity.ScanEvent)
}
