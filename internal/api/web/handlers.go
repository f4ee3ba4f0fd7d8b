package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	app "ortho-scan/internal/application"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/infrastructure/storage"
)

const multipartMemory = 32 << 20

type patientRequest struct {
	Name            string `json:"name"`
	Age             string `json:"age"`
	Gender          string `json:"gender"`
	PatientID       string `json:"patient_id"`
	RadiologistName string `json:"radiologist_name"`
	RadiologistID   string `json:"radiologist_id"`
}

type scanResponse struct {
	entity.ScanResult
	ThresholdMM float64                 `json:"threshold_mm,omitempty"`
	Details     *entity.ClinicalDetails `json:"details,omitempty"`
	ImageURL    string                  `json:"image_url"`
	OriginalURL string                  `json:"original_url"`
}

type failureResponse struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type uploadResponse struct {
	Scans       []scanResponse    `json:"scans"`
	Failed      []failureResponse `json:"failed"`
	Report      string            `json:"report,omitempty"`
	ReportURL   string            `json:"report_url,omitempty"`
	ReportError string            `json:"report_error,omitempty"`
}

type sessionResponse struct {
	Patient    *entity.Patient `json:"patient"`
	Scans      []scanResponse  `json:"scans"`
	LastReport string          `json:"last_report,omitempty"`
}

type reportRequest struct {
	ScanIDs []string `json:"scan_ids"`
}

func imageURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/api/images/" + rel
}

func reportURL(name string) string {
	return "/api/reports/" + name
}

func toScanResponse(scan entity.ScanResult) scanResponse {
	resp := scanResponse{
		ScanResult:  scan,
		OriginalURL: imageURL(scan.OriginalPath),
		ImageURL:    imageURL(scan.AnnotatedPath),
	}
	if resp.ImageURL == "" {
		resp.ImageURL = resp.OriginalURL
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleSavePatient POST /api/patient
func (s *Server) handleSavePatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, "Patient name is required", http.StatusBadRequest)
		return
	}

	patient := entity.NewPatient(req.Name, req.Age, req.Gender, req.PatientID)
	patient.RadiologistName = strings.TrimSpace(req.RadiologistName)
	patient.RadiologistID = strings.TrimSpace(req.RadiologistID)

	if _, err := s.container.SessionService.SavePatient(r.Context(), sessionFrom(r), 0, patient); err != nil {
		s.fail(w, "save patient", err)
		return
	}
	respondJSON(w, patient, http.StatusOK)
}

// handleUpload POST /api/scans, файлы в поле "images"
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Upload is too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		respondError(w, "No images uploaded", http.StatusBadRequest)
		return
	}

	uploads := make([]app.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			respondError(w, fmt.Sprintf("Failed to read %s", h.Filename), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, fmt.Sprintf("Failed to read %s", h.Filename), http.StatusBadRequest)
			return
		}
		uploads = append(uploads, app.Upload{Filename: h.Filename, Data: data})
	}

	out, err := s.container.ScanService.UploadBatch(r.Context(), sessionFrom(r), 0, uploads)
	if err != nil {
		s.fail(w, "upload batch", err)
		return
	}

	resp := uploadResponse{
		Scans:  make([]scanResponse, 0, len(out.Scans)),
		Failed: make([]failureResponse, 0, len(out.Failed)),
	}
	for _, scan := range out.Scans {
		item := toScanResponse(scan.Result)
		item.Details = scan.Details
		if scan.Selected != nil {
			item.ThresholdMM = scan.Selected.Threshold
		}
		resp.Scans = append(resp.Scans, item)
	}
	for _, f := range out.Failed {
		resp.Failed = append(resp.Failed, failureResponse{Filename: f.Filename, Error: f.Err.Error()})
	}
	if out.ReportName != "" {
		resp.Report = out.ReportName
		resp.ReportURL = reportURL(out.ReportName)
	}
	if out.ReportErr != nil {
		resp.ReportError = out.ReportErr.Error()
	}

	status := http.StatusOK
	if len(out.Scans) == 0 {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, resp, status)
}

// handleListScans GET /api/scans
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	session, err := s.container.SessionService.Get(r.Context(), sessionFrom(r), 0)
	if err != nil {
		s.fail(w, "get session", err)
		return
	}

	resp := sessionResponse{
		Patient:    session.Patient,
		Scans:      make([]scanResponse, 0, len(session.Scans)),
		LastReport: session.LastReport,
	}
	for _, scan := range session.Scans {
		resp.Scans = append(resp.Scans, toScanResponse(scan))
	}
	respondJSON(w, resp, http.StatusOK)
}

// handleDetails GET /api/scans/{id}/details
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.container.ScanService.Details(r.Context(), sessionFrom(r), 0, r.PathValue("id"))
	if err != nil {
		s.fail(w, "scan details", err)
		return
	}
	respondJSON(w, details, http.StatusOK)
}

// handleDeleteScan DELETE /api/scans/{id}
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.container.ScanService.DeleteScan(r.Context(), sessionFrom(r), 0, r.PathValue("id")); err != nil {
		s.fail(w, "delete scan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerateReport POST /api/reports
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	name, err := s.container.ScanService.GenerateReport(r.Context(), sessionFrom(r), 0, req.ScanIDs)
	if err != nil {
		s.fail(w, "generate report", err)
		return
	}
	respondJSON(w, map[string]string{"report": name, "report_url": reportURL(name)}, http.StatusCreated)
}

// handleDownloadReport GET /api/reports/{name}
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := s.container.ReportService.ReportFile(name)
	if err != nil {
		s.fail(w, "report file", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, p)
}

// handleImage GET /api/images/{kind}/{name}, только файлы снимков своей сессии
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != storage.UploadsKind && kind != storage.ProcessedKind {
		respondError(w, "Not found", http.StatusNotFound)
		return
	}
	rel := path.Join(kind, r.PathValue("name"))

	session, err := s.container.SessionService.Get(r.Context(), sessionFrom(r), 0)
	if err != nil {
		s.fail(w, "get session", err)
		return
	}
	owned := false
	for _, scan := range session.Scans {
		if scan.OriginalPath == rel || scan.AnnotatedPath == rel {
			owned = true
			break
		}
	}
	if !owned {
		respondError(w, "Not found", http.StatusNotFound)
		return
	}

	p, err := s.container.ScanService.ResolvePath(rel)
	if err != nil {
		s.fail(w, "resolve image", err)
		return
	}
	http.ServeFile(w, r, p)
}

// handleClear POST /api/session/clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, err := s.container.SessionService.Clear(r.Context(), sessionFrom(r), 0); err != nil {
		s.fail(w, "clear session", err)
		return
	}
	respondJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "error", err)
		respondError(w, "Internal server error", status)
		return
	}
	respondError(w, err.Error(), status)
}
