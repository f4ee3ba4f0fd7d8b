package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

var (
	colorHigh  = color.NRGBA{R: 255, A: 255}
	colorLow   = color.NRGBA{G: 255, A: 255}
	colorLabel = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const boxThickness = 2

// Annotator рисует рамку находки и подпись с частью тела, размером и уверенностью.
// Красный цвет для высокой степени, зелёный для низкой.
type Annotator struct {
	face font.Face
}

func NewAnnotator() *Annotator {
	return &Annotator{face: basicfont.Face7x13}
}

// SeverityColor цвет рамки для степени тяжести
func SeverityColor(s entity.Severity) color.NRGBA {
	if s == entity.SeverityHigh {
		return colorHigh
	}
	return colorLow
}

// LabelLines текст подписи построчно
func LabelLines(r entity.SelectedResult) []string {
	return []string{
		fmt.Sprintf("%s-%s", r.BodyPart, r.Label),
		fmt.Sprintf("Size: %.1fmm", r.SizeMM),
		fmt.Sprintf("Conf: %.2f", r.Confidence),
	}
}

// Annotate рисует на копии, исходное изображение не изменяется
func (a *Annotator) Annotate(img image.Image, result entity.SelectedResult) (image.Image, error) {
	if img == nil {
		return nil, errors.New("annotate: nil image")
	}

	dst := imaging.Clone(img)
	boxColor := SeverityColor(result.Severity)
	lines := LabelLines(result)

	metrics := a.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	baseline := metrics.Descent.Ceil()
	lineHeight := metrics.Height.Ceil()

	textW := 0
	for _, line := range lines {
		if w := font.MeasureString(a.face, line).Ceil(); w > textW {
			textW = w
		}
	}
	textH := lineHeight*(len(lines)-1) + ascent

	labelRect := LabelRect(result.Box, textW, textH, baseline)
	draw.Draw(dst, labelRect, image.NewUniform(boxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colorLabel),
		Face: a.face,
	}
	// нижняя строка стоит на базовой линии в 5px от нижнего края подписи
	bottom := labelRect.Max.Y - labelGap - baseline
	for i, line := range lines {
		y := bottom - (len(lines)-1-i)*lineHeight
		d.Dot = fixed.P(labelRect.Min.X+labelGap, y)
		d.DrawString(line)
	}

	strokeRect(dst, result.Box.Rect(), boxThickness, boxColor)

	return dst, nil
}

// strokeRect рисует контур прямоугольника толщиной t пикселей внутрь от границы
func strokeRect(dst draw.Image, r image.Rectangle, t int, c color.Color) {
	src := image.NewUniform(c)
	bands := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, b := range bands {
		draw.Draw(dst, b, src, image.Point{}, draw.Src)
	}
}

var _ port.Annotator = (*Annotator)(nil)
