package app

import "errors"

var (
	// ErrUnreadableImage снимок не удалось декодировать
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrUnsupportedFile расширение файла не из списка разрешённых
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrPatientRequired отчёт нельзя собрать без данных пациента
	ErrPatientRequired = errors.New("patient information is required")
	// ErrNoScansSelected не выбрано ни одного снимка с находкой
	ErrNoScansSelected = errors.New("no scans selected for report")
	// ErrScanNotFound снимок не найден в сессии
	ErrScanNotFound = errors.New("scan not found")
	// ErrReportNotFound файл отчёта не найден
	ErrReportNotFound = errors.New("report not found")
)
