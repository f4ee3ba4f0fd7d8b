package entity

import "time"

// LabelNormal метка изображения без находок
const LabelNormal = "normal"

// ScanResult итог обработки одного загруженного снимка
type ScanResult struct {
	ID            string    `json:"id"`
	OriginalPath  string    `json:"original_path"`
	AnnotatedPath string    `json:"annotated_path,omitempty"`
	Label         string    `json:"label"`
	BodyPart      BodyPart  `json:"body_part,omitempty"`
	Confidence    float64   `json:"confidence"`
	SizeMM        float64   `json:"size_mm"`
	Severity      Severity  `json:"severity,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsNormal true, если ни один детектор ничего не нашёл
func (s ScanResult) IsNormal() bool {
	return s.BodyPart == ""
}
