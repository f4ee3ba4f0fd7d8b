package telegram

const (
	msgStart = `👋 Привет! Я помогаю с первичной оценкой рентгеновских снимков: колено, позвоночник, пятка, запястье.

📋 Команды:
/patient Имя; Возраст; Пол[; ID] — данные пациента
/scan — загрузить снимки
/report — собрать PDF-отчёт
/clear — очистить сессию
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Укажите пациента: /patient Иван Петров; 54; M
2️⃣ Отправьте снимки (фото или файлы PNG/JPG)
3️⃣ Для каждого снимка придёт разметка, размер находки и описание
4️⃣ Если пациент указан, отчёт соберётся автоматически. Собрать заново: /report

⚠️ Результат носит справочный характер и не заменяет заключение врача.`

	msgAwaitingPhoto   = "📸 Отправьте один или несколько рентгеновских снимков (PNG или JPG)."
	msgCancelled       = "❌ Операция отменена. Отправьте /scan для загрузки снимков."
	msgSendPhoto       = "📸 Отправьте снимок или воспользуйтесь /help."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю снимок..."
	msgNormal          = "✅ Патологий не обнаружено."
	msgProcessingError = "⚠️ Не удалось обработать снимок. Попробуйте другой файл."
	msgUnsupportedFile = "⚠️ Поддерживаются только файлы PNG и JPG."
	msgTooLarge        = "⚠️ Файл слишком большой."
	msgPatientUsage    = "✏️ Формат: /patient Имя; Возраст; Пол[; ID]\nНапример: /patient Иван Петров; 54; M"
	msgPatientRequired = "👤 Сначала укажите пациента: /patient Имя; Возраст; Пол"
	msgNoScans         = "📭 Нет снимков с находками для отчёта. Отправьте /scan."
	msgReportError     = "⚠️ Не удалось собрать отчёт. Попробуйте позже."
	msgCleared         = "🧹 Сессия очищена."
	msgInternalError   = "⚠️ Внутренняя ошибка. Попробуйте позже."

	fmtPatientSaved = "👤 Пациент сохранён: %s, %s, %s\nID: %s"
	fmtScanCaption  = "🦴 %s: %s\n📏 Размер: %.1f мм (порог %.1f мм)\n🎯 Уверенность: %.2f\n%s Степень: %s"
	fmtDetails      = "🔎 Находки:\n%s\n\n⚠️ Риски:\n%s\n\n🧪 Рекомендуемые исследования:\n%s"
	fmtReportReady  = "📄 Отчёт для пациента %s"
)
