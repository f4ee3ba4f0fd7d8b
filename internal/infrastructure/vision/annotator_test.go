package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
)

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func TestLabelLines(t *testing.T) {
	lines := LabelLines(entity.SelectedResult{
		BodyPart:   entity.BodyPartKnee,
		Label:      "knee osteoarthritis (moderate)",
		SizeMM:     25,
		Confidence: 0.876,
	})
	require.Equal(t, []string{"knee-knee osteoarthritis (moderate)", "Size: 25.0mm", "Conf: 0.88"}, lines)
}

func TestAnnotator_DoesNotMutateOriginal(t *testing.T) {
	src := grayImage(200, 200)
	before := append([]uint8(nil), src.Pix...)

	out, err := NewAnnotator().Annotate(src, entity.SelectedResult{
		BodyPart: entity.BodyPartWrist,
		Label:    "fracture",
		Box:      entity.BoundingBox{X1: 60, Y1: 100, X2: 100, Y2: 130},
		SizeMM:   25,
		Severity: entity.SeverityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, before, src.Pix)
	require.Equal(t, src.Bounds(), out.Bounds())

	// левая грань рамки красная
	r, g, b, _ := out.At(60, 115).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Zero(t, g)
	require.Zero(t, b)
}

func TestAnnotator_LowSeverityIsGreen(t *testing.T) {
	out, err := NewAnnotator().Annotate(grayImage(200, 200), entity.SelectedResult{
		BodyPart: entity.BodyPartHeel,
		Label:    "heel spur",
		Box:      entity.BoundingBox{X1: 60, Y1: 100, X2: 100, Y2: 130},
		Severity: entity.SeverityLow,
	})
	require.NoError(t, err)

	r, g, _, _ := out.At(80, 129).RGBA()
	require.Zero(t, r)
	require.Equal(t, uint32(0xffff), g)
}

func TestAnnotator_LabelBelowBoxNearTop(t *testing.T) {
	out, err := NewAnnotator().Annotate(grayImage(300, 200), entity.SelectedResult{
		BodyPart: entity.BodyPartSpine,
		Label:    "scoliosis",
		Box:      entity.BoundingBox{X1: 10, Y1: 5, X2: 60, Y2: 40},
		Severity: entity.SeverityHigh,
	})
	require.NoError(t, err)

	// фон подписи начинается в 5px под рамкой
	r, _, _, _ := out.At(12, 46).RGBA()
	require.Equal(t, uint32(0xffff), r)
	// над рамкой ничего не нарисовано
	r, g, b, _ := out.At(12, 2).RGBA()
	require.Equal(t, r, g)
	require.Equal(t, g, b)
}

func TestAnnotator_NilImage(t *testing.T) {
	_, err := NewAnnotator().Annotate(nil, entity.SelectedResult{})
	require.Error(t, err)
}

func TestCodec_Decode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grayImage(16, 8)))

	img, err := NewCodec().Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 16, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())

	_, err = NewCodec().Decode([]byte("not an image"))
	require.Error(t, err)

	_, err = NewCodec().Decode(nil)
	require.Error(t, err)
}
