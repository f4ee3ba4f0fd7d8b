package vision

import (
	"image"

	"ortho-scan/internal/domain/entity"
)

const (
	labelGap     = 5  // отступ подписи от рамки
	labelPadding = 10 // суммарный внутренний отступ подписи
)

// LabelRect место под подпись: над рамкой, а если сверху не помещается, то под ней.
// textW, textH и baseline размеры текста в пикселях.
func LabelRect(box entity.BoundingBox, textW, textH, baseline int) image.Rectangle {
	height := textH + baseline + labelPadding

	x1 := box.X1
	x2 := x1 + textW + labelPadding
	y2 := box.Y1 - labelGap
	y1 := y2 - height

	if y1 < 0 {
		y1 = box.Y2 + labelGap
		y2 = y1 + height
	}

	return image.Rect(x1, y1, x2, y2)
}
