// Package catalog хранит неизменяемые справочники: пороги тяжести по
// (часть тела, метка) и тексты находок, рисков и рекомендуемых исследований.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ortho-scan/internal/domain/entity"
)

// DefaultThreshold порог для пар (часть тела, метка), которых нет в таблице.
const DefaultThreshold = 20.0

//go:embed default.yaml
var defaultData []byte

type document struct {
	Thresholds map[string]map[string]float64 `yaml:"thresholds"`
	Findings   map[string]string             `yaml:"findings"`
	Risks      map[string]string             `yaml:"risks"`
	Tests      map[string]string             `yaml:"tests"`
}

// Catalog справочник только для чтения. Создаётся один раз при старте и
// передаётся по указателю; наружу отдаются только копии значений.
type Catalog struct {
	thresholds map[entity.BodyPart]map[string]float64
	findings   map[string]string
	risks      map[string]string
	tests      map[string]string
}

// Default разбирает встроенный справочник.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// Load читает справочник из YAML-файла. Пустой путь - встроенный справочник.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML-документ справочника.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		thresholds: make(map[entity.BodyPart]map[string]float64, len(doc.Thresholds)),
		findings:   copyText(doc.Findings),
		risks:      copyText(doc.Risks),
		tests:      copyText(doc.Tests),
	}
	for rawPart, labels := range doc.Thresholds {
		part, err := entity.ParseBodyPart(rawPart)
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		byLabel := make(map[string]float64, len(labels))
		for label, value := range labels {
			if value <= 0 {
				return nil, fmt.Errorf("parse catalog: threshold %s/%s must be positive, got %v", part, label, value)
			}
			byLabel[label] = value
		}
		c.thresholds[part] = byLabel
	}
	return c, nil
}

func copyText(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Threshold возвращает порог для пары и признак того, что пара есть в таблице.
// Для отсутствующей пары возвращается DefaultThreshold.
func (c *Catalog) Threshold(part entity.BodyPart, label string) (float64, bool) {
	if v, ok := c.thresholds[part][label]; ok {
		return v, true
	}
	return DefaultThreshold, false
}

// Findings точный поиск текста находок по метке.
func (c *Catalog) Findings(label string) (string, bool) {
	v, ok := c.findings[label]
	return v, ok
}

// Risks точный поиск текста рисков по метке.
func (c *Catalog) Risks(label string) (string, bool) {
	v, ok := c.risks[label]
	return v, ok
}

// Tests точный поиск рекомендуемых исследований по метке.
func (c *Catalog) Tests(label string) (string, bool) {
	v, ok := c.tests[label]
	return v, ok
}

// UnreachableTextKeys ключи текстовых таблиц, до которых не может дойти
// нормализованная (нижний регистр) метка, например "Ostheophytes".
func (c *Catalog) UnreachableTextKeys() []string {
	seen := make(map[string]struct{})
	for _, table := range []map[string]string{c.findings, c.risks, c.tests} {
		for key := range table {
			if key != strings.ToLower(key) {
				seen[key] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// UnmatchedThresholdLabels метки порогов, для которых нет текста находок,
// в формате "spine/vertebral_collapse".
func (c *Catalog) UnmatchedThresholdLabels() []string {
	seen := make(map[string]struct{})
	for part, labels := range c.thresholds {
		for label := range labels {
			if _, ok := c.findings[TextKey(label)]; !ok {
				seen[string(part)+"/"+label] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// TextKey ключ текстовой таблицы для метки: у остеоартрита колена тексты
// хранятся по степени ("mild"), а не по полной метке.
func TextKey(label string) string {
	if grade, ok := KneeOsteoarthritisGrade(label); ok {
		return grade
	}
	return label
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
