//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

const (
	yoloInputSize = 640
	yoloMinScore  = 0.25
)

// YOLODetector модель YOLO в формате ONNX через OpenCV DNN.
// Возвращает одного лучшего кандидата на снимок.
type YOLODetector struct {
	mu    sync.Mutex
	net   gocv.Net
	names []string
	part  entity.BodyPart
}

// NewYOLODetector загружает модель и список классов части тела
func NewYOLODetector(modelPath, namesPath string, part entity.BodyPart) (*YOLODetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	names, err := LoadClassNames(namesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{net: net, names: names, part: part}, nil
}

// NewYOLODetectors загружает модели всех частей тела из каталога
func NewYOLODetectors(dir string) (map[entity.BodyPart]port.Detector, error) {
	detectors := make(map[entity.BodyPart]port.Detector, len(entity.BodyParts))
	for _, part := range entity.BodyParts {
		model, names := ModelPaths(dir, part)
		d, err := NewYOLODetector(model, names, part)
		if err != nil {
			return nil, fmt.Errorf("%s detector: %w", part, err)
		}
		detectors[part] = d
	}
	return detectors, nil
}

// Close освобождает сеть
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Detect прогоняет снимок через сеть
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) ([]entity.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	// gocv.Net не потокобезопасен
	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	// выход YOLOv8: [1, 4+классы, предсказания]
	sizes := out.Size()
	if len(sizes) != 3 || sizes[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	attrs, preds := sizes[1], sizes[2]

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read network output: %w", err)
	}

	scaleX := float64(mat.Cols()) / yoloInputSize
	scaleY := float64(mat.Rows()) / yoloInputSize

	var best *entity.Candidate
	for i := 0; i < preds; i++ {
		classID, score := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := data[c*preds+i]; s > score {
				classID, score = c-4, s
			}
		}
		if score < yoloMinScore || (best != nil && float64(score) <= best.Confidence) {
			continue
		}

		cx, cy := float64(data[i]), float64(data[preds+i])
		w, h := float64(data[2*preds+i]), float64(data[3*preds+i])
		best = &entity.Candidate{
			ClassID:    classID,
			ClassName:  className(d.names, classID),
			Confidence: float64(score),
			Box: entity.BoundingBox{
				X1: clamp(int((cx-w/2)*scaleX), 0, mat.Cols()),
				Y1: clamp(int((cy-h/2)*scaleY), 0, mat.Rows()),
				X2: clamp(int((cx+w/2)*scaleX), 0, mat.Cols()),
				Y2: clamp(int((cy+h/2)*scaleY), 0, mat.Rows()),
			},
		}
	}

	if best == nil {
		return nil, nil
	}
	return []entity.Candidate{*best}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ port.Detector = (*YOLODetector)(nil)
