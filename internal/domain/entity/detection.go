package entity

import (
	"image"
	"math"
)

// BoundingBox прямоугольник в пиксельных координатах (x1,y1)-(x2,y2)
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width ширина прямоугольника в пикселях
func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

// Height высота прямоугольника в пикселях
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

// Diagonal длина диагонали в пикселях
func (b BoundingBox) Diagonal() float64 {
	w := float64(b.Width())
	h := float64(b.Height())
	return math.Sqrt(w*w + h*h)
}

// Rect переводит прямоугольник в image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Candidate сырой кандидат от модели детекции
type Candidate struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// Detection лучший кандидат одного детектора, привязанный к части тела.
// После создания не изменяется.
type Detection struct {
	ClassLabel string
	Confidence float64
	Box        BoundingBox
	BodyPart   BodyPart
}

// Severity степень выраженности находки
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityLow  Severity = "low"
)

// SelectedResult победившая детекция изображения с оценкой размера
type SelectedResult struct {
	BodyPart   BodyPart    `json:"body_part"`
	Label      string      `json:"label"` // нормализованная метка
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
	SizeMM     float64     `json:"size_mm"`
	Threshold  float64     `json:"threshold_mm"`
	Severity   Severity    `json:"severity"`
}

// ClinicalDetails три текстовых блока для метки
type ClinicalDetails struct {
	Findings string `json:"findings"`
	Risks    string `json:"risks"`
	Tests    string `json:"tests"`
}
