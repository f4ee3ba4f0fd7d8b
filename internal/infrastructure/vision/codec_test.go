package vision

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
)

// exifOrientation6 APP1-сегмент с единственным тегом Orientation = 6
var exifOrientation6 = []byte{
	0xFF, 0xE1, 0x00, 0x22,
	'E', 'x', 'i', 'f', 0x00, 0x00,
	'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
	0x00, 0x01,
	0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x06, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

func rotatedJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, grayImage(w, h), &jpeg.Options{Quality: 90}))
	raw := buf.Bytes()

	out := make([]byte, 0, len(raw)+len(exifOrientation6))
	out = append(out, raw[:2]...) // SOI
	out = append(out, exifOrientation6...)
	out = append(out, raw[2:]...)
	return out
}

func TestCodec_DecodeKeepsDetectorFrame(t *testing.T) {
	data := rotatedJPEG(t, 200, 100)

	// EXIF-тег действительно читается
	oriented, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 100, 200), oriented.Bounds())

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)

	img, err := NewCodec().Decode(data)
	require.NoError(t, err)
	require.Equal(t, cfg.Width, img.Bounds().Dx())
	require.Equal(t, cfg.Height, img.Bounds().Dy())
}

func TestAnnotator_BoxOnRotatedJPEG(t *testing.T) {
	img, err := NewCodec().Decode(rotatedJPEG(t, 200, 100))
	require.NoError(t, err)

	out, err := NewAnnotator().Annotate(img, entity.SelectedResult{
		BodyPart: entity.BodyPartWrist,
		Label:    "fracture",
		Box:      entity.BoundingBox{X1: 150, Y1: 40, X2: 190, Y2: 70},
		Severity: entity.SeverityHigh,
	})
	require.NoError(t, err)

	r, g, b, _ := out.At(150, 55).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Zero(t, g)
	require.Zero(t, b)
}
