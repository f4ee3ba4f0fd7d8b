package container

import (
	"log/slog"

	app "ortho-scan/internal/application"
	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// Deps инфраструктура, из которой собираются сервисы
type Deps struct {
	Catalog   *catalog.Catalog
	Sessions  port.SessionRepository
	Detectors map[entity.BodyPart]port.Detector
	Decoder   port.ImageDecoder
	Annotator port.Annotator
	Store     port.ImageStore
	Renderer  port.ReportRenderer
	Events    port.EventPublisher // может быть nil
	Logger    *slog.Logger
}

type Container struct {
	Catalog        *catalog.Catalog
	SessionService *app.SessionService
	ScanService    *app.ScanService
	ReportService  *app.ReportService
}

func New(d Deps) *Container {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionService := app.NewSessionService(d.Sessions)
	resolver := app.NewFindingsResolver(d.Catalog)
	reportService := app.NewReportService(d.Store, d.Renderer, resolver, logger)
	scanService := app.NewScanService(
		sessionService,
		app.NewDetectionRunner(d.Detectors, logger),
		app.NewSeverityAssessor(d.Catalog),
		d.Decoder,
		d.Annotator,
		d.Store,
		resolver,
		reportService,
		logger,
	)
	if d.Events != nil {
		scanService.SetEventPublisher(d.Events)
	}

	return &Container{
		Catalog:        d.Catalog,
		SessionService: sessionService,
		ScanService:    scanService,
		ReportService:  reportService,
	}
}
