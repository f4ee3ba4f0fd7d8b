package app

import (
	"context"
	"fmt"
	"log/slog"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// DetectionSet лучшая детекция каждой части тела; отсутствующий ключ - детектор ничего не дал.
type DetectionSet map[entity.BodyPart]entity.Detection

// DetectionRunner опрашивает детекторы всех частей тела по одному разу.
type DetectionRunner struct {
	detectors map[entity.BodyPart]port.Detector
	logger    *slog.Logger
}

// NewDetectionRunner создаёт раннер. Детекторы неизвестных частей тела игнорируются.
func NewDetectionRunner(detectors map[entity.BodyPart]port.Detector, logger *slog.Logger) *DetectionRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionRunner{detectors: detectors, logger: logger}
}

// Run вызывает каждый детектор один раз. Ошибка одного детектора
// логируется и не мешает остальным.
func (r *DetectionRunner) Run(ctx context.Context, imageData []byte) DetectionSet {
	set := make(DetectionSet, len(r.detectors))
	for _, part := range entity.BodyParts {
		detector, ok := r.detectors[part]
		if !ok || detector == nil {
			continue
		}

		candidates, err := detectSafely(ctx, detector, imageData)
		if err != nil {
			r.logger.Warn("detector failed", "body_part", part, "error", err)
			continue
		}

		best, ok := topCandidate(candidates)
		if !ok {
			continue
		}
		set[part] = entity.Detection{
			ClassLabel: best.ClassName,
			Confidence: best.Confidence,
			Box:        best.Box,
			BodyPart:   part,
		}
		r.logger.Debug("detector result", "body_part", part, "class", best.ClassName, "confidence", best.Confidence)
	}
	return set
}

// detectSafely превращает панику детектора (cgo, внешняя модель) в ошибку.
func detectSafely(ctx context.Context, detector port.Detector, imageData []byte) (candidates []entity.Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("detector panic: %v", rec)
		}
	}()
	return detector.Detect(ctx, imageData)
}

// topCandidate кандидат с максимальной уверенностью, при равенстве - первый.
func topCandidate(candidates []entity.Candidate) (entity.Candidate, bool) {
	if len(candidates) == 0 {
		return entity.Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

// SelectBest выбирает детекцию со строго наибольшей уверенностью в порядке
// entity.BodyParts. Если ни у кого уверенность не больше нуля - снимок нормальный.
func SelectBest(set DetectionSet) (entity.Detection, bool) {
	var (
		best     entity.Detection
		bestConf float64
		found    bool
	)
	for _, part := range entity.BodyParts {
		d, ok := set[part]
		if !ok {
			continue
		}
		if d.Confidence > bestConf {
			best, bestConf, found = d, d.Confidence, true
		}
	}
	return best, found
}
