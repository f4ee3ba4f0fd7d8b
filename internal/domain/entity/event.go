package entity

import "time"

// EventType тип события обработки снимков
type EventType string

const (
	EventScanProcessed   EventType = "scan_processed"
	EventScanFailed      EventType = "scan_failed"
	EventScanDeleted     EventType = "scan_deleted"
	EventReportGenerated EventType = "report_generated"
)

// ScanEvent событие для подписчиков сессии
type ScanEvent struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"-"`
	Filename  string      `json:"filename,omitempty"`
	Scan      *ScanResult `json:"scan,omitempty"`
	Report    string      `json:"report,omitempty"`
	Error     string      `json:"error,omitempty"`
	At        time.Time   `json:"at"`
}
