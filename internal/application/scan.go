package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

var allowedImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// AllowedImage проверяет расширение загружаемого файла
func AllowedImage(filename string) bool {
	_, ok := allowedImageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Upload один загруженный файл
type Upload struct {
	Filename string
	Data     []byte
}

// ScanOutput результат обработки снимка вместе с текстами.
// Selected и Details пустые для нормального снимка.
type ScanOutput struct {
	Result   entity.ScanResult
	Selected *entity.SelectedResult
	Details  *entity.ClinicalDetails
}

// UploadFailure файл, который не удалось обработать
type UploadFailure struct {
	Filename string
	Err      error
}

// BatchOutput итог загрузки пачки снимков
type BatchOutput struct {
	Scans      []ScanOutput
	Failed     []UploadFailure
	ReportName string // заполнено, если отчёт собран автоматически
	ReportErr  error
}

type ScanService struct {
	sessions  *SessionService
	runner    *DetectionRunner
	assessor  *SeverityAssessor
	decoder   port.ImageDecoder
	annotator port.Annotator
	store     port.ImageStore
	describer port.ClinicalDescriber
	reports   *ReportService
	events    port.EventPublisher
	logger    *slog.Logger
}

// NewScanService создаёт сервис обработки снимков.
func NewScanService(
	sessions *SessionService,
	runner *DetectionRunner,
	assessor *SeverityAssessor,
	decoder port.ImageDecoder,
	annotator port.Annotator,
	store port.ImageStore,
	describer port.ClinicalDescriber,
	reports *ReportService,
	logger *slog.Logger,
) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanService{
		sessions:  sessions,
		runner:    runner,
		assessor:  assessor,
		decoder:   decoder,
		annotator: annotator,
		store:     store,
		describer: describer,
		reports:   reports,
		logger:    logger,
	}
}

// SetEventPublisher подключает рассылку событий обработки
func (s *ScanService) SetEventPublisher(p port.EventPublisher) {
	s.events = p
}

func (s *ScanService) publish(event entity.ScanEvent) {
	if s.events == nil {
		return
	}
	event.At = time.Now()
	s.events.Publish(event)
}

// ProcessImage прогоняет один снимок через все детекторы, выбирает лучшую
// детекцию, размечает копию и сохраняет оба файла.
func (s *ScanService) ProcessImage(ctx context.Context, filename string, data []byte) (*ScanOutput, error) {
	if !AllowedImage(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	img, err := s.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, filename, err)
	}

	originalPath, err := s.store.SaveUpload(filename, data)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	result := entity.ScanResult{
		ID:           uuid.NewString(),
		OriginalPath: originalPath,
		Label:        entity.LabelNormal,
		CreatedAt:    time.Now(),
	}

	best, ok := SelectBest(s.runner.Run(ctx, data))
	if !ok {
		s.logger.Info("no detection, image is normal", "file", filename)
		return &ScanOutput{Result: result}, nil
	}

	selected := s.assessor.Assess(best)
	annotated, err := s.annotator.Annotate(img, selected)
	if err != nil {
		s.discardUpload(originalPath)
		return nil, fmt.Errorf("annotate image: %w", err)
	}

	annotatedPath, err := s.store.SaveAnnotated(annotated, filename)
	if err != nil {
		s.discardUpload(originalPath)
		return nil, fmt.Errorf("save annotated image: %w", err)
	}

	result.AnnotatedPath = annotatedPath
	result.Label = selected.Label
	result.BodyPart = selected.BodyPart
	result.Confidence = selected.Confidence
	result.SizeMM = selected.SizeMM
	result.Severity = selected.Severity

	details := s.describer.Describe(catalog.TextKey(selected.Label))

	s.logger.Info("image processed",
		"file", filename,
		"body_part", selected.BodyPart,
		"label", selected.Label,
		"confidence", selected.Confidence,
		"size_mm", selected.SizeMM,
		"severity", selected.Severity,
	)

	return &ScanOutput{Result: result, Selected: &selected, Details: &details}, nil
}

// discardUpload удаляет сохранённый оригинал снимка, который не попал в сессию
func (s *ScanService) discardUpload(rel string) {
	if err := s.store.Remove(rel); err != nil {
		s.logger.Warn("failed to remove upload", "path", rel, "error", err)
	}
}

// UploadBatch обрабатывает снимки по очереди. Ошибка одного файла не
// прерывает пачку. Если в сессии есть пациент и найдена хотя бы одна
// патология, отчёт собирается автоматически.
// Снимки обрабатываются без блокировки сессии, результаты добавляются
// к её актуальному состоянию в конце.
func (s *ScanService) UploadBatch(ctx context.Context, sessionID string, chatID int64, uploads []Upload) (*BatchOutput, error) {
	if _, err := s.sessions.SetState(ctx, sessionID, chatID, entity.StateProcessing); err != nil {
		return nil, err
	}

	out := &BatchOutput{}
	var reportIDs []string

	for _, upload := range uploads {
		scan, err := s.ProcessImage(ctx, upload.Filename, upload.Data)
		if err != nil {
			s.logger.Warn("upload failed", "file", upload.Filename, "error", err)
			out.Failed = append(out.Failed, UploadFailure{Filename: upload.Filename, Err: err})
			s.publish(entity.ScanEvent{Type: entity.EventScanFailed, SessionID: sessionID, Filename: upload.Filename, Error: err.Error()})
			continue
		}
		out.Scans = append(out.Scans, *scan)
		result := scan.Result
		s.publish(entity.ScanEvent{Type: entity.EventScanProcessed, SessionID: sessionID, Filename: upload.Filename, Scan: &result})
		if !scan.Result.IsNormal() {
			reportIDs = append(reportIDs, scan.Result.ID)
		}
	}

	_, err := s.sessions.Update(ctx, sessionID, chatID, func(session *entity.Session) error {
		for _, scan := range out.Scans {
			session.AddScan(scan.Result)
		}

		if session.Patient != nil && len(reportIDs) > 0 && s.reports != nil {
			name, err := s.reports.Generate(ctx, session, reportIDs)
			if err != nil {
				s.logger.Error("automatic report failed", "session", sessionID, "error", err)
				out.ReportErr = err
			} else {
				out.ReportName = name
			}
		}

		session.SetState(entity.StateMainMenu)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.ReportName != "" {
		s.publish(entity.ScanEvent{Type: entity.EventReportGenerated, SessionID: sessionID, Report: out.ReportName})
	}
	return out, nil
}

// Details тексты находок, рисков и исследований для снимка сессии
func (s *ScanService) Details(ctx context.Context, sessionID string, chatID int64, scanID string) (entity.ClinicalDetails, error) {
	session, err := s.sessions.Get(ctx, sessionID, chatID)
	if err != nil {
		return entity.ClinicalDetails{}, err
	}

	scan, ok := session.FindScan(scanID)
	if !ok {
		return entity.ClinicalDetails{}, fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
	}
	return s.describer.Describe(catalog.TextKey(scan.Label)), nil
}

// DeleteScan удаляет снимок из сессии, затем его файлы
func (s *ScanService) DeleteScan(ctx context.Context, sessionID string, chatID int64, scanID string) error {
	var scan entity.ScanResult
	_, err := s.sessions.Update(ctx, sessionID, chatID, func(session *entity.Session) error {
		removed, ok := session.RemoveScan(scanID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
		}
		scan = removed
		return nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, rel := range []string{scan.OriginalPath, scan.AnnotatedPath} {
		if rel == "" {
			continue
		}
		if err := s.store.Remove(rel); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("failed to remove scan files", "scan", scanID, "error", err)
	}

	s.publish(entity.ScanEvent{Type: entity.EventScanDeleted, SessionID: sessionID, Scan: &scan})
	return nil
}

// GenerateReport собирает отчёт по выбранным снимкам и сохраняет сессию
func (s *ScanService) GenerateReport(ctx context.Context, sessionID string, chatID int64, scanIDs []string) (string, error) {
	return s.generateReport(ctx, sessionID, chatID, func(*entity.Session) []string {
		return scanIDs
	})
}

// GenerateFullReport отчёт по всем снимкам сессии с находками
func (s *ScanService) GenerateFullReport(ctx context.Context, sessionID string, chatID int64) (string, error) {
	return s.generateReport(ctx, sessionID, chatID, func(session *entity.Session) []string {
		annotated := session.AnnotatedScans()
		ids := make([]string, 0, len(annotated))
		for _, scan := range annotated {
			ids = append(ids, scan.ID)
		}
		return ids
	})
}

func (s *ScanService) generateReport(ctx context.Context, sessionID string, chatID int64, selectIDs func(*entity.Session) []string) (string, error) {
	var name string
	_, err := s.sessions.Update(ctx, sessionID, chatID, func(session *entity.Session) error {
		var err error
		name, err = s.reports.Generate(ctx, session, selectIDs(session))
		return err
	})
	if err != nil {
		return "", err
	}

	s.publish(entity.ScanEvent{Type: entity.EventReportGenerated, SessionID: sessionID, Report: name})
	return name, nil
}

// ResolvePath абсолютный путь к файлу снимка ("uploads/..." или "processed/...")
func (s *ScanService) ResolvePath(relPath string) (string, error) {
	return s.store.Resolve(relPath)
}
