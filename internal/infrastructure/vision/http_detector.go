package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// HTTPDetector отправляет снимок во внешний сервис инференса.
// Для каждой части тела своя модель: POST {baseURL}/detect/{part}.
type HTTPDetector struct {
	baseURL  string
	bodyPart entity.BodyPart
	client   *http.Client
}

// NewHTTPDetector создаёт клиент модели для части тела
func NewHTTPDetector(baseURL string, part entity.BodyPart, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		baseURL:  strings.TrimRight(baseURL, "/"),
		bodyPart: part,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewHTTPDetectors создаёт клиентов для всех частей тела
func NewHTTPDetectors(baseURL string, timeout time.Duration) map[entity.BodyPart]port.Detector {
	detectors := make(map[entity.BodyPart]port.Detector, len(entity.BodyParts))
	for _, part := range entity.BodyParts {
		detectors[part] = NewHTTPDetector(baseURL, part, timeout)
	}
	return detectors
}

// Detect выполняет инференс через внешний сервис
func (d *HTTPDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Candidate, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/detect/%s", d.baseURL, d.bodyPart)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s model: inference failed with status %d: %s",
			d.bodyPart, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Detections []entity.Candidate `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Detections, nil
}

// CheckHealth проверяет доступность сервиса инференса
func CheckHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

var _ port.Detector = (*HTTPDetector)(nil)
