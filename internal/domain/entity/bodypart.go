package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBodyPart возвращается при разборе неизвестной части тела.
var ErrUnknownBodyPart = errors.New("unknown body part")

// BodyPart часть тела, для которой есть отдельный детектор
type BodyPart string

const (
	BodyPartKnee  BodyPart = "knee"
	BodyPartSpine BodyPart = "spine"
	BodyPartHeel  BodyPart = "heel"
	BodyPartWrist BodyPart = "wrist"
)

// BodyParts фиксированный порядок опроса детекторов.
// При равной уверенности побеждает часть тела, стоящая раньше.
var BodyParts = []BodyPart{BodyPartKnee, BodyPartSpine, BodyPartHeel, BodyPartWrist}

// ParseBodyPart разбирает строку без учёта регистра.
func ParseBodyPart(s string) (BodyPart, error) {
	p := BodyPart(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range BodyParts {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBodyPart, s)
}

func (p BodyPart) String() string {
	return string(p)
}

// Title возвращает название для отчёта ("Knee").
func (p BodyPart) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}
