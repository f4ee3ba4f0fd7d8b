package vision

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"ortho-scan/internal/domain/port"
)

// Codec декодирует снимки без поворота по EXIF, в той же системе
// координат, что получают детекторы.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

// Decode принимает PNG и JPEG
func (c *Codec) Decode(imageData []byte) (image.Image, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("decode image: empty data")
	}
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

var _ port.ImageDecoder = (*Codec)(nil)
