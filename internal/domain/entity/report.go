package entity

import "time"

// ReportItem раздел отчёта по одному снимку
type ReportItem struct {
	OriginalPath  string
	AnnotatedPath string // абсолютный путь к размеченному изображению
	Label         string
	Title         string // заголовок метки, например "Knee Osteoarthritis (Mild)"
	Details       ClinicalDetails
}

// Report всё, что нужно для сборки документа
type Report struct {
	Patient     Patient
	Items       []ReportItem
	GeneratedAt time.Time
}
