package port

import "ortho-scan/internal/domain/entity"

// ClinicalDescriber интерфейс описателя находок
type ClinicalDescriber interface {
	// Describe возвращает находки, риски и исследования для нормализованной метки
	Describe(label string) entity.ClinicalDetails
}
