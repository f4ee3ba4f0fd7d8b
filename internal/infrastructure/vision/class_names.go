package vision

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ortho-scan/internal/domain/entity"
)

// ModelPaths пути к ONNX-модели и списку классов части тела в каталоге моделей:
// <dir>/<part>.onnx и <dir>/<part>.names
func ModelPaths(dir string, part entity.BodyPart) (model, names string) {
	return filepath.Join(dir, part.String()+".onnx"), filepath.Join(dir, part.String()+".names")
}

// LoadClassNames читает имена классов, по одному на строку
func LoadClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no class names in %s", path)
	}
	return names, nil
}

// className имя класса по индексу, для неизвестных "class_<id>"
func className(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("class_%d", id)
}
