package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
	"ortho-scan/internal/infrastructure/storage"
)

type scanFixture struct {
	svc       *ScanService
	sessions  *SessionService
	store     *fakeStore
	annotator *fakeAnnotator
	renderer  *fakeRenderer
	knee      *fakeDetector
	wrist     *fakeDetector
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	c := newTestCatalog(t)
	logger := discardLogger()

	f := &scanFixture{
		store:     newFakeStore(t.TempDir()),
		annotator: &fakeAnnotator{},
		renderer:  &fakeRenderer{},
		knee:      &fakeDetector{},
		wrist:     &fakeDetector{},
	}
	f.sessions = NewSessionService(storage.NewMemorySessionRepository())
	runner := NewDetectionRunner(map[entity.BodyPart]port.Detector{
		entity.BodyPartKnee:  f.knee,
		entity.BodyPartWrist: f.wrist,
	}, logger)
	resolver := NewFindingsResolver(c)
	reports := NewReportService(f.store, f.renderer, resolver, logger)
	f.svc = NewScanService(f.sessions, runner, NewSeverityAssessor(c), fakeDecoder{}, f.annotator, f.store, resolver, reports, logger)
	return f
}

func TestScanService_ProcessImage_Annotates(t *testing.T) {
	f := newScanFixture(t)
	f.knee.candidates = []entity.Candidate{candidate("mild", 0.6)}
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.4)}

	out, err := f.svc.ProcessImage(context.Background(), "knee.png", []byte("img"))
	require.NoError(t, err)

	require.Equal(t, "knee osteoarthritis (mild)", out.Result.Label)
	require.Equal(t, entity.BodyPartKnee, out.Result.BodyPart)
	require.NotEmpty(t, out.Result.AnnotatedPath)
	require.NotEmpty(t, out.Result.OriginalPath)
	require.Equal(t, entity.SeverityHigh, out.Result.Severity)
	require.InDelta(t, 25.0, out.Result.SizeMM, 1e-9)

	require.NotNil(t, out.Details)
	require.Contains(t, out.Details.Findings, "Osteoarthritis (Mild)")
	require.Len(t, f.annotator.calls, 1)
}

func TestScanService_ProcessImage_Normal(t *testing.T) {
	f := newScanFixture(t)

	out, err := f.svc.ProcessImage(context.Background(), "hand.jpg", []byte("img"))
	require.NoError(t, err)
	require.True(t, out.Result.IsNormal())
	require.Equal(t, entity.LabelNormal, out.Result.Label)
	require.Empty(t, out.Result.AnnotatedPath)
	require.Nil(t, out.Details)
	require.Empty(t, f.annotator.calls)
}

func TestScanService_ProcessImage_Rejects(t *testing.T) {
	f := newScanFixture(t)

	_, err := f.svc.ProcessImage(context.Background(), "scan.gif", []byte("img"))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = f.svc.ProcessImage(context.Background(), "scan.png", []byte("corrupt"))
	require.ErrorIs(t, err, ErrUnreadableImage)
	require.Zero(t, f.knee.calls)
}

func TestScanService_UploadBatch_ContinuesAfterFailure(t *testing.T) {
	f := newScanFixture(t)
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.9)}
	ctx := context.Background()

	out, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{
		{Filename: "a.png", Data: []byte("corrupt")},
		{Filename: "b.png", Data: []byte("img")},
	})
	require.NoError(t, err)
	require.Len(t, out.Failed, 1)
	require.Equal(t, "a.png", out.Failed[0].Filename)
	require.Len(t, out.Scans, 1)
	require.Empty(t, out.ReportName, "no patient - no automatic report")

	session, err := f.sessions.Get(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, session.Scans, 1)
	require.Equal(t, entity.StateMainMenu, session.State)
}

func TestScanService_UploadBatch_AutomaticReport(t *testing.T) {
	f := newScanFixture(t)
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.9)}
	ctx := context.Background()

	_, err := f.sessions.SavePatient(ctx, "s1", 0, entity.NewPatient("Ann", "40", "F", "P1"))
	require.NoError(t, err)

	out, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{{Filename: "w.jpg", Data: []byte("img")}})
	require.NoError(t, err)
	require.NotEmpty(t, out.ReportName)
	require.NoError(t, out.ReportErr)

	require.Len(t, f.renderer.reports, 1)
	report := f.renderer.reports[0]
	require.Equal(t, "Ann", report.Patient.Name)
	require.Len(t, report.Items, 1)
	require.Equal(t, "Fracture", report.Items[0].Title)

	session, err := f.sessions.Get(ctx, "s1", 0)
	require.NoError(t, err)
	require.Equal(t, out.ReportName, session.LastReport)

	path, err := f.svc.reports.ReportFile(out.ReportName)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestScanService_DetailsAndDelete(t *testing.T) {
	f := newScanFixture(t)
	f.wrist.candidates = []entity.Candidate{candidate("metal", 0.9)}
	ctx := context.Background()

	out, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{{Filename: "w.jpg", Data: []byte("img")}})
	require.NoError(t, err)
	id := out.Scans[0].Result.ID

	details, err := f.svc.Details(ctx, "s1", 0, id)
	require.NoError(t, err)
	require.Contains(t, details.Findings, "Metal Implant")

	_, err = f.svc.Details(ctx, "s1", 0, "missing")
	require.ErrorIs(t, err, ErrScanNotFound)

	original := filepath.Join(f.store.dir, out.Scans[0].Result.OriginalPath)
	require.FileExists(t, original)

	require.NoError(t, f.svc.DeleteScan(ctx, "s1", 0, id))
	_, statErr := os.Stat(original)
	require.True(t, os.IsNotExist(statErr))
	require.Len(t, f.store.removed, 2)

	session, err := f.sessions.Get(ctx, "s1", 0)
	require.NoError(t, err)
	require.Empty(t, session.Scans)

	require.ErrorIs(t, f.svc.DeleteScan(ctx, "s1", 0, id), ErrScanNotFound)
}

func TestAllowedImage(t *testing.T) {
	require.True(t, AllowedImage("a.PNG"))
	require.True(t, AllowedImage("b.jpeg"))
	require.False(t, AllowedImage("c.bmp"))
	require.False(t, AllowedImage("noext"))
}

func TestScanService_PublishesEvents(t *testing.T) {
	f := newScanFixture(t)
	events := &fakePublisher{}
	f.svc.SetEventPublisher(events)
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.9)}
	ctx := context.Background()

	_, err := f.sessions.SavePatient(ctx, "s1", 0, entity.NewPatient("Ann", "40", "F", ""))
	require.NoError(t, err)

	out, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{
		{Filename: "bad.png", Data: []byte("corrupt")},
		{Filename: "w.png", Data: []byte("img")},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteScan(ctx, "s1", 0, out.Scans[0].Result.ID))

	require.Equal(t, []entity.EventType{
		entity.EventScanFailed,
		entity.EventScanProcessed,
		entity.EventReportGenerated,
		entity.EventScanDeleted,
	}, events.types())
	for _, e := range events.events {
		require.Equal(t, "s1", e.SessionID)
		require.False(t, e.At.IsZero())
	}
}

func TestScanService_ProcessImage_RemovesUploadOnAnnotateError(t *testing.T) {
	f := newScanFixture(t)
	f.knee.candidates = []entity.Candidate{candidate("mild", 0.6)}
	f.annotator.err = errors.New("draw failed")

	_, err := f.svc.ProcessImage(context.Background(), "knee.png", []byte("img"))
	require.Error(t, err)
	require.Len(t, f.store.removed, 1)
	require.NoFileExists(t, filepath.Join(f.store.dir, f.store.removed[0]))
}

func TestScanService_UploadBatch_KeepsConcurrentSessionChanges(t *testing.T) {
	f := newScanFixture(t)
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.9)}
	ctx := context.Background()

	first, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{{Filename: "first.png", Data: []byte("img")}})
	require.NoError(t, err)
	firstID := first.Scans[0].Result.ID

	blocking := newBlockingDetector(candidate("fracture", 0.9))
	f.svc.runner = NewDetectionRunner(map[entity.BodyPart]port.Detector{
		entity.BodyPartWrist: blocking,
	}, discardLogger())

	type batchResult struct {
		out *BatchOutput
		err error
	}
	done := make(chan batchResult, 1)
	go func() {
		out, err := f.svc.UploadBatch(ctx, "s1", 0, []Upload{{Filename: "second.png", Data: []byte("img")}})
		done <- batchResult{out: out, err: err}
	}()

	<-blocking.started
	_, err = f.sessions.SavePatient(ctx, "s1", 0, entity.NewPatient("Ann", "40", "F", "P1"))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteScan(ctx, "s1", 0, firstID))
	close(blocking.release)

	res := <-done
	require.NoError(t, res.err)
	require.NotEmpty(t, res.out.ReportName)

	session, err := f.sessions.Get(ctx, "s1", 0)
	require.NoError(t, err)
	require.NotNil(t, session.Patient)
	require.Equal(t, "Ann", session.Patient.Name)
	require.Len(t, session.Scans, 1)
	require.Equal(t, res.out.Scans[0].Result.ID, session.Scans[0].ID)
	require.Equal(t, res.out.ReportName, session.LastReport)
	require.Equal(t, entity.StateMainMenu, session.State)
}

func TestScanService_GenerateFullReport(t *testing.T) {
	f := newScanFixture(t)
	f.wrist.candidates = []entity.Candidate{candidate("fracture", 0.9)}
	ctx := context.Background()

	_, err := f.svc.GenerateFullReport(ctx, "s1", 0)
	require.ErrorIs(t, err, ErrPatientRequired)

	_, err = f.sessions.SavePatient(ctx, "s1", 0, entity.NewPatient("Ann", "40", "F", ""))
	require.NoError(t, err)
	_, err = f.svc.GenerateFullReport(ctx, "s1", 0)
	require.ErrorIs(t, err, ErrNoScansSelected)

	_, err = f.svc.UploadBatch(ctx, "s1", 0, []Upload{{Filename: "w.png", Data: []byte("img")}})
	require.NoError(t, err)

	name, err := f.svc.GenerateFullReport(ctx, "s1", 0)
	require.NoError(t, err)

	session, err := f.sessions.Get(ctx, "s1", 0)
	require.NoError(t, err)
	require.Equal(t, name, session.LastReport)
}
