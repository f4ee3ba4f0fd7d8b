package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "ortho-scan/internal/application"
	"ortho-scan/internal/container"
	"ortho-scan/internal/domain/entity"
)

const maxMessageLen = 4096

// botAPI часть tgbotapi.BotAPI, которую использует бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot Telegram-бот для загрузки снимков и получения отчётов
type Bot struct {
	api       botAPI
	updates   *tgbotapi.BotAPI
	container *container.Container
	client    *http.Client
	maxBytes  int64
	logger    *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, maxBytes int64, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("authorized on telegram", "account", api.Self.UserName)

	b := newBot(api, c, maxBytes, logger)
	b.updates = api
	return b, nil
}

func newBot(api botAPI, c *container.Container, maxBytes int64, logger *slog.Logger) *Bot {
	return &Bot{
		api:       api,
		container: c,
		client:    &http.Client{Timeout: time.Minute},
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	if b.updates == nil {
		return errors.New("bot is not connected")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.updates.GetUpdatesChan(u)
	defer b.updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func sessionID(msg *tgbotapi.Message) string {
	return "tg-" + strconv.FormatInt(msg.From.ID, 10)
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото и файлов
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		name := fmt.Sprintf("photo_%s.jpg", photo.FileUniqueID)
		b.handleImage(ctx, msg, photo.FileID, name, int64(photo.FileSize))
		return
	}
	if msg.Document != nil {
		if !app.AllowedImage(msg.Document.FileName) {
			b.sendMessage(msg.Chat.ID, msgUnsupportedFile)
			return
		}
		b.handleImage(ctx, msg, msg.Document.FileID, msg.Document.FileName, int64(msg.Document.FileSize))
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	id, chatID := sessionID(msg), msg.Chat.ID
	sessions := b.container.SessionService

	switch msg.Command() {
	case "start":
		if _, err := sessions.Cancel(ctx, id, chatID); err != nil {
			b.fail(chatID, "cancel", err)
			return
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "patient":
		patient, err := ParsePatientArgs(msg.CommandArguments())
		if err != nil {
			b.sendMessage(chatID, msgPatientUsage)
			return
		}
		if _, err := sessions.SavePatient(ctx, id, chatID, patient); err != nil {
			b.fail(chatID, "save patient", err)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(fmtPatientSaved, patient.Name, patient.Age, patient.Gender, patient.PatientID))

	case "scan":
		if _, err := sessions.BeginScan(ctx, id, chatID); err != nil {
			b.fail(chatID, "begin scan", err)
			return
		}
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "report":
		b.handleReport(ctx, msg)

	case "clear":
		if _, err := sessions.Clear(ctx, id, chatID); err != nil {
			b.fail(chatID, "clear session", err)
			return
		}
		b.sendMessage(chatID, msgCleared)

	case "cancel":
		if _, err := sessions.Cancel(ctx, id, chatID); err != nil {
			b.fail(chatID, "cancel", err)
			return
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// ParsePatientArgs разбирает "Имя; Возраст; Пол[; ID]"
func ParsePatientArgs(args string) (*entity.Patient, error) {
	parts := strings.Split(args, ";")
	if len(parts) < 3 || len(parts) > 4 {
		return nil, fmt.Errorf("expected 3 or 4 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return nil, errors.New("patient name is required")
	}

	var patientID string
	if len(parts) == 4 {
		patientID = parts[3]
	}
	return entity.NewPatient(parts[0], parts[1], parts[2], patientID), nil
}

// handleImage скачивает снимок и прогоняет его через детекторы
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, fileID, filename string, size int64) {
	chatID := msg.Chat.ID
	if b.maxBytes > 0 && size > b.maxBytes {
		b.sendMessage(chatID, msgTooLarge)
		return
	}

	b.sendMessage(chatID, msgProcessing)

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.logger.Error("error downloading file", "file", filename, "error", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	out, err := b.container.ScanService.UploadBatch(ctx, sessionID(msg), chatID, []app.Upload{{Filename: filename, Data: data}})
	if err != nil {
		b.fail(chatID, "upload batch", err)
		return
	}

	for _, failure := range out.Failed {
		if errors.Is(failure.Err, app.ErrUnsupportedFile) {
			b.sendMessage(chatID, msgUnsupportedFile)
		} else {
			b.sendMessage(chatID, msgProcessingError)
		}
	}

	for _, scan := range out.Scans {
		b.sendScan(chatID, scan)
	}

	if out.ReportName != "" {
		b.sendReport(ctx, msg, out.ReportName)
	}
}

func (b *Bot) sendScan(chatID int64, scan app.ScanOutput) {
	if scan.Selected == nil {
		b.sendMessage(chatID, msgNormal)
		return
	}

	path, err := b.container.ScanService.ResolvePath(scan.Result.AnnotatedPath)
	if err != nil {
		b.fail(chatID, "resolve annotated image", err)
		return
	}

	sel := scan.Selected
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = fmt.Sprintf(fmtScanCaption,
		sel.BodyPart.Title(), sel.Label, sel.SizeMM, sel.Threshold, sel.Confidence,
		severityMark(sel.Severity), severityName(sel.Severity))
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("error sending photo", "error", err)
	}

	if scan.Details != nil {
		d := scan.Details
		b.sendMessage(chatID, fmt.Sprintf(fmtDetails, d.Findings, d.Risks, d.Tests))
	}
}

func severityMark(s entity.Severity) string {
	if s == entity.SeverityHigh {
		return "🔴"
	}
	return "🟢"
}

func severityName(s entity.Severity) string {
	if s == entity.SeverityHigh {
		return "высокая"
	}
	return "низкая"
}

// handleReport собирает отчёт по всем снимкам с находками
func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name, err := b.container.ScanService.GenerateFullReport(ctx, sessionID(msg), chatID)
	switch {
	case errors.Is(err, app.ErrPatientRequired):
		b.sendMessage(chatID, msgPatientRequired)
		return
	case errors.Is(err, app.ErrNoScansSelected):
		b.sendMessage(chatID, msgNoScans)
		return
	case err != nil:
		b.logger.Error("report failed", "error", err)
		b.sendMessage(chatID, msgReportError)
		return
	}
	b.sendReport(ctx, msg, name)
}

func (b *Bot) sendReport(ctx context.Context, msg *tgbotapi.Message, name string) {
	chatID := msg.Chat.ID
	path, err := b.container.ReportService.ReportFile(name)
	if err != nil {
		b.fail(chatID, "report file", err)
		return
	}

	var patientName string
	if session, err := b.container.SessionService.Get(ctx, sessionID(msg), chatID); err == nil && session.Patient != nil {
		patientName = session.Patient.Name
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf(fmtReportReady, patientName)
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("error sending report", "file", filepath.Base(path), "error", err)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if b.maxBytes > 0 {
		body = io.LimitReader(resp.Body, b.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if b.maxBytes > 0 && int64(len(data)) > b.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", b.maxBytes)
	}

	return data, nil
}

func (b *Bot) fail(chatID int64, op string, err error) {
	b.logger.Error("telegram handler failed", "op", op, "chat", chatID, "error", err)
	b.sendMessage(chatID, msgInternalError)
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLen))
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("error sending message", "error", err)
	}
}

// truncate обрезает текст до limit символов
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}
