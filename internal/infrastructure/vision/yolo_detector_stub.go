//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// ErrGoCVDisabled сборка без тега gocv
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// NewYOLODetectors возвращает ошибку, если сборка без тега gocv.
func NewYOLODetectors(dir string) (map[entity.BodyPart]port.Detector, error) {
	_ = dir
	return nil, ErrGoCVDisabled
}
