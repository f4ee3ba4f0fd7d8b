package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

type ReportService struct {
	store     port.ImageStore
	renderer  port.ReportRenderer
	describer port.ClinicalDescriber
	logger    *slog.Logger
	now       func() time.Time
}

func NewReportService(store port.ImageStore, renderer port.ReportRenderer, describer port.ClinicalDescriber, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		store:     store,
		renderer:  renderer,
		describer: describer,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate собирает отчёт по выбранным снимкам сессии и запоминает имя
// файла в session.LastReport. Сессию сохраняет вызывающий.
func (s *ReportService) Generate(ctx context.Context, session *entity.Session, scanIDs []string) (string, error) {
	if session.Patient == nil {
		return "", ErrPatientRequired
	}
	if len(scanIDs) == 0 {
		return "", ErrNoScansSelected
	}

	report := &entity.Report{
		Patient:     *session.Patient,
		GeneratedAt: s.now(),
	}
	for _, id := range scanIDs {
		scan, ok := session.FindScan(id)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrScanNotFound, id)
		}
		if scan.IsNormal() {
			continue
		}
		item, err := s.buildItem(scan)
		if err != nil {
			return "", err
		}
		report.Items = append(report.Items, item)
	}
	if len(report.Items) == 0 {
		return "", ErrNoScansSelected
	}

	name := fmt.Sprintf("report_%s.pdf", strings.ReplaceAll(uuid.NewString(), "-", ""))
	path, err := s.store.ReportPath(name)
	if err != nil {
		return "", err
	}
	if err := s.renderer.Render(ctx, report, path); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	session.LastReport = name
	s.logger.Info("report generated", "session", session.ID, "file", name, "items", len(report.Items))
	return name, nil
}

func (s *ReportService) buildItem(scan entity.ScanResult) (entity.ReportItem, error) {
	annotated, err := s.store.Resolve(scan.AnnotatedPath)
	if err != nil {
		return entity.ReportItem{}, fmt.Errorf("resolve annotated image: %w", err)
	}
	return entity.ReportItem{
		OriginalPath:  scan.OriginalPath,
		AnnotatedPath: annotated,
		Label:         scan.Label,
		Title:         catalog.DisplayTitle(scan.Label),
		Details:       s.describer.Describe(catalog.TextKey(scan.Label)),
	}, nil
}

// ReportFile абсолютный путь к существующему отчёту
func (s *ReportService) ReportFile(name string) (string, error) {
	path, err := s.store.ReportPath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrReportNotFound, name)
		}
		return "", err
	}
	return path, nil
}
