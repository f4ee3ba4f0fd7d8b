package app

import (
	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
)

// PixelSpacingCM калибровочная константа: сантиметров на пиксель.
const PixelSpacingCM = 0.05

// SizeMM грубая оценка размера находки по диагонали рамки, в миллиметрах.
// Это эвристика, а не радиологическое измерение.
func SizeMM(box entity.BoundingBox) float64 {
	return box.Diagonal() * PixelSpacingCM * 10
}

// SeverityAssessor сравнивает размер находки с порогом из справочника.
type SeverityAssessor struct {
	catalog *catalog.Catalog
}

func NewSeverityAssessor(c *catalog.Catalog) *SeverityAssessor {
	return &SeverityAssessor{catalog: c}
}

// Assess нормализует метку, считает размер и степень тяжести.
func (a *SeverityAssessor) Assess(d entity.Detection) entity.SelectedResult {
	label := catalog.NormalizeLabel(d.BodyPart, d.ClassLabel)
	size := SizeMM(d.Box)
	threshold, _ := a.catalog.Threshold(d.BodyPart, label)

	severity := entity.SeverityLow
	if size > threshold {
		severity = entity.SeverityHigh
	}

	return entity.SelectedResult{
		BodyPart:   d.BodyPart,
		Label:      label,
		Confidence: d.Confidence,
		Box:        d.Box,
		SizeMM:     size,
		Threshold:  threshold,
		Severity:   severity,
	}
}
