package catalog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ortho-scan/internal/domain/entity"
)

const kneeOsteoarthritisPrefix = "knee osteoarthritis ("

// kneeGrades классы модели колена, которые переименовываются в остеоартрит.
var kneeGrades = map[string]struct{}{
	"doubtful": {},
	"mild":     {},
	"moderate": {},
}

// NormalizeLabel приводит класс модели к метке для справочников:
// колено + {doubtful, mild, moderate} -> "knee osteoarthritis (<класс>)",
// остальные классы только переводятся в нижний регистр.
func NormalizeLabel(part entity.BodyPart, rawClass string) string {
	lower := strings.ToLower(rawClass)
	if part == entity.BodyPartKnee {
		if _, ok := kneeGrades[lower]; ok {
			return fmt.Sprintf("%s%s)", kneeOsteoarthritisPrefix, lower)
		}
	}
	return lower
}

// KneeOsteoarthritisGrade извлекает степень из метки "knee osteoarthritis (mild)".
func KneeOsteoarthritisGrade(label string) (string, bool) {
	if !strings.HasPrefix(label, kneeOsteoarthritisPrefix) || !strings.HasSuffix(label, ")") {
		return "", false
	}
	grade := strings.TrimSpace(label[len(kneeOsteoarthritisPrefix) : len(label)-1])
	if grade == "" {
		return "", false
	}
	return grade, true
}

// DisplayTitle заголовок метки для отчёта: "Knee Osteoarthritis (Mild)", "Heel Spur".
func DisplayTitle(label string) string {
	if grade, ok := KneeOsteoarthritisGrade(label); ok {
		return fmt.Sprintf("Knee Osteoarthritis (%s)", titleWords(grade))
	}
	return titleWords(label)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
