package port

import (
	"context"
	"image"

	"ortho-scan/internal/domain/entity"
)

// Detector предобученная модель одной части тела
type Detector interface {
	// Detect возвращает кандидатов (класс, уверенность, рамка) для изображения
	Detect(ctx context.Context, imageData []byte) ([]entity.Candidate, error)
}

// Annotator рисует рамку и подпись победившей детекции
type Annotator interface {
	// Annotate возвращает размеченную копию, исходное изображение не меняется
	Annotate(img image.Image, result entity.SelectedResult) (image.Image, error)
}

// ImageDecoder декодирует байты снимка
type ImageDecoder interface {
	Decode(imageData []byte) (image.Image, error)
}
