package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"ortho-scan/internal/domain/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDetector struct {
	candidates []entity.Candidate
	err        error
	panicMsg   string
	calls      int
}

func (d *fakeDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Candidate, error) {
	d.calls++
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	return d.candidates, d.err
}

func candidate(name string, conf float64) entity.Candidate {
	return entity.Candidate{ClassName: name, Confidence: conf, Box: entity.BoundingBox{X1: 10, Y1: 10, X2: 50, Y2: 40}}
}

// fakeDecoder принимает любые байты, кроме "corrupt"
type fakeDecoder struct{}

func (fakeDecoder) Decode(data []byte) (image.Image, error) {
	if string(data) == "corrupt" {
		return nil, errors.New("bad header")
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	img.Set(0, 0, color.White)
	return img, nil
}

type fakeAnnotator struct {
	calls []entity.SelectedResult
	err   error
}

func (a *fakeAnnotator) Annotate(img image.Image, result entity.SelectedResult) (image.Image, error) {
	a.calls = append(a.calls, result)
	if a.err != nil {
		return nil, a.err
	}
	return img, nil
}

// blockingDetector ждёт release перед ответом, started закрывается при первом вызове
type blockingDetector struct {
	candidates []entity.Candidate
	started    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func newBlockingDetector(candidates ...entity.Candidate) *blockingDetector {
	return &blockingDetector{
		candidates: candidates,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (d *blockingDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Candidate, error) {
	d.once.Do(func() { close(d.started) })
	<-d.release
	return d.candidates, nil
}

// fakeStore пишет файлы во временный каталог
type fakeStore struct {
	dir     string
	mu      sync.Mutex
	counter int
	removed []string
}

func newFakeStore(dir string) *fakeStore {
	return &fakeStore{dir: dir}
}

func (s *fakeStore) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter
}

func (s *fakeStore) SaveUpload(filename string, data []byte) (string, error) {
	rel := fmt.Sprintf("uploads/%d_%s", s.next(), filename)
	return rel, s.write(rel, data)
}

func (s *fakeStore) SaveAnnotated(img image.Image, filename string) (string, error) {
	rel := fmt.Sprintf("processed/annotated_%d_%s", s.next(), filename)
	return rel, s.write(rel, []byte("annotated"))
}

func (s *fakeStore) write(rel string, data []byte) error {
	path := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *fakeStore) Resolve(relPath string) (string, error) {
	return filepath.Join(s.dir, relPath), nil
}

func (s *fakeStore) Remove(relPath string) error {
	s.removed = append(s.removed, relPath)
	return os.Remove(filepath.Join(s.dir, relPath))
}

func (s *fakeStore) ReportPath(name string) (string, error) {
	return filepath.Join(s.dir, "reports", name), nil
}

type fakeRenderer struct {
	reports []*entity.Report
	err     error
}

func (r *fakeRenderer) Render(ctx context.Context, report *entity.Report, outputPath string) error {
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, report)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("%PDF-fake"), 0o644)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []entity.ScanEvent
}

func (p *fakePublisher) Publish(event entity.ScanEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
