package port

import (
	"context"

	"ortho-scan/internal/domain/entity"
)

// ReportRenderer собирает документ отчёта
type ReportRenderer interface {
	// Render записывает отчёт в outputPath
	Render(ctx context.Context, report *entity.Report, outputPath string) error
}
