package app

import (
	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

const (
	NoFindingsText = "No specific findings available"
	NoRisksText    = "No specific risks available"
	NoTestsText    = "No specific tests available"
)

// FindingsResolver точный поиск текстов по метке, промах - текст-заглушка.
type FindingsResolver struct {
	catalog *catalog.Catalog
}

func NewFindingsResolver(c *catalog.Catalog) *FindingsResolver {
	return &FindingsResolver{catalog: c}
}

// Describe никогда не возвращает ошибку
func (r *FindingsResolver) Describe(label string) entity.ClinicalDetails {
	details := entity.ClinicalDetails{
		Findings: NoFindingsText,
		Risks:    NoRisksText,
		Tests:    NoTestsText,
	}
	if v, ok := r.catalog.Findings(label); ok {
		details.Findings = v
	}
	if v, ok := r.catalog.Risks(label); ok {
		details.Risks = v
	}
	if v, ok := r.catalog.Tests(label); ok {
		details.Tests = v
	}
	return details
}

var _ port.ClinicalDescriber = (*FindingsResolver)(nil)
