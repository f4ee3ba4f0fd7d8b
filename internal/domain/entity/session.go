package entity

import "time"

// SessionState состояние сессии в диалоге
type SessionState string

const (
	StateMainMenu      SessionState = "main_menu"      // В главном меню
	StateAwaitingPhoto SessionState = "awaiting_photo" // Ожидание снимков
	StateProcessing    SessionState = "processing"     // Обработка снимков
)

// Session состояние одного пользователя между запросами:
// данные пациента, обработанные снимки и последний отчёт.
type Session struct {
	ID         string       // Telegram User ID или cookie веб-сессии
	ChatID     int64        // Telegram Chat ID, 0 для веба
	State      SessionState // Текущее состояние
	Patient    *Patient
	Scans      []ScanResult
	LastReport string // имя файла последнего отчёта
	UpdatedAt  time.Time
}

// NewSession создаёт сессию с начальным состоянием
func NewSession(id string, chatID int64) *Session {
	return &Session{
		ID:        id,
		ChatID:    chatID,
		State:     StateMainMenu,
		UpdatedAt: time.Now(),
	}
}

// SetState обновляет состояние сессии
func (s *Session) SetState(state SessionState) {
	s.State = state
	s.UpdatedAt = time.Now()
}

// AddScan добавляет результат обработки снимка
func (s *Session) AddScan(scan ScanResult) {
	s.Scans = append(s.Scans, scan)
	s.UpdatedAt = time.Now()
}

// FindScan ищет снимок по ID
func (s *Session) FindScan(id string) (ScanResult, bool) {
	for _, scan := range s.Scans {
		if scan.ID == id {
			return scan, true
		}
	}
	return ScanResult{}, false
}

// RemoveScan удаляет снимок по ID и возвращает удалённую запись
func (s *Session) RemoveScan(id string) (ScanResult, bool) {
	for i, scan := range s.Scans {
		if scan.ID == id {
			s.Scans = append(s.Scans[:i], s.Scans[i+1:]...)
			s.UpdatedAt = time.Now()
			return scan, true
		}
	}
	return ScanResult{}, false
}

// AnnotatedScans снимки с найденной патологией (попадают в отчёт)
func (s *Session) AnnotatedScans() []ScanResult {
	out := make([]ScanResult, 0, len(s.Scans))
	for _, scan := range s.Scans {
		if !scan.IsNormal() {
			out = append(out, scan)
		}
	}
	return out
}
