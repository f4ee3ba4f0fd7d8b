package storage

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"ortho-scan/internal/domain/port"
)

const (
	UploadsKind   = "uploads"
	ProcessedKind = "processed"
	ReportsKind   = "reports"
)

// ErrInvalidPath путь выходит за пределы каталога данных
var ErrInvalidPath = errors.New("invalid storage path")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileStore раскладывает файлы по каталогам uploads, processed и reports
type FileStore struct {
	root string
}

// NewFileStore создаёт каталоги под корнем root
func NewFileStore(root string) (*FileStore, error) {
	for _, kind := range []string{UploadsKind, ProcessedKind, ReportsKind} {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", kind, err)
		}
	}
	return &FileStore{root: root}, nil
}

// SanitizeFilename оставляет в имени только безопасные символы
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "image"
	}
	return name
}

func uniquePrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SaveUpload сохраняет исходный файл как uploads/<uuid>_<имя>
func (s *FileStore) SaveUpload(filename string, data []byte) (string, error) {
	rel := path.Join(UploadsKind, uniquePrefix()+"_"+SanitizeFilename(filename))
	if err := os.WriteFile(s.abs(rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return rel, nil
}

// SaveAnnotated сохраняет размеченное изображение как processed/annotated_<uuid>_<имя>,
// формат определяется расширением исходного файла
func (s *FileStore) SaveAnnotated(img image.Image, filename string) (string, error) {
	rel := path.Join(ProcessedKind, "annotated_"+uniquePrefix()+"_"+SanitizeFilename(filename))
	if err := imaging.Save(img, s.abs(rel), imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("write annotated image: %w", err)
	}
	return rel, nil
}

// Resolve переводит "uploads/..." или "processed/..." в абсолютный путь
func (s *FileStore) Resolve(relPath string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	kind, name, ok := strings.Cut(clean, "/")
	if !ok || name == "" || strings.Contains(name, "/") || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	switch kind {
	case UploadsKind, ProcessedKind, ReportsKind:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return s.abs(clean), nil
}

// Remove удаляет файл, отсутствие файла не ошибка
func (s *FileStore) Remove(relPath string) error {
	p, err := s.Resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", relPath, err)
	}
	return nil
}

// ReportPath путь к отчёту с именем name внутри reports
func (s *FileStore) ReportPath(name string) (string, error) {
	return s.Resolve(path.Join(ReportsKind, name))
}

func (s *FileStore) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

var _ port.ImageStore = (*FileStore)(nil)
