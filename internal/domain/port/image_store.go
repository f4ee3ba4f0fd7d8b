package port

import "image"

// ImageStore файловое хранилище загрузок, размеченных снимков и отчётов.
// Пути в результатах относительные: "uploads/<имя>", "processed/<имя>".
type ImageStore interface {
	// SaveUpload сохраняет исходный файл под уникальным именем
	SaveUpload(filename string, data []byte) (string, error)

	// SaveAnnotated кодирует и сохраняет размеченное изображение
	SaveAnnotated(img image.Image, filename string) (string, error)

	// Resolve переводит относительный путь в абсолютный
	Resolve(relPath string) (string, error)

	// Remove удаляет файл по относительному пути
	Remove(relPath string) error

	// ReportPath абсолютный путь к файлу отчёта
	ReportPath(name string) (string, error)
}
