package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
)

func TestLabelRect_AboveBox(t *testing.T) {
	box := entity.BoundingBox{X1: 50, Y1: 100, X2: 150, Y2: 200}

	r := LabelRect(box, 80, 20, 4)

	// y2 = 100-5 = 95, y1 = 95-(20+4+10) = 61
	require.Equal(t, image.Rect(50, 61, 140, 95), r)
}

func TestLabelRect_FlipsBelowWhenNoRoom(t *testing.T) {
	box := entity.BoundingBox{X1: 10, Y1: 20, X2: 60, Y2: 80}

	r := LabelRect(box, 40, 20, 4)

	// сверху y1 = 15-34 < 0, подпись уходит под рамку: y1 = 85, y2 = 119
	require.Equal(t, image.Rect(10, 85, 60, 119), r)
}

func TestLabelRect_ExactFitStaysAbove(t *testing.T) {
	box := entity.BoundingBox{X1: 0, Y1: 39, X2: 10, Y2: 50}

	r := LabelRect(box, 10, 20, 4)

	require.Equal(t, 0, r.Min.Y)
	require.Equal(t, 34, r.Max.Y)
}
