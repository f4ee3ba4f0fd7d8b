package entity

import (
	"strings"

	"github.com/google/uuid"
)

// Patient данные пациента для шапки отчёта
type Patient struct {
	Name            string `json:"name"`
	Age             string `json:"age"`
	Gender          string `json:"gender"`
	PatientID       string `json:"patient_id"`
	RadiologistName string `json:"radiologist_name"`
	RadiologistID   string `json:"radiologist_id"`
}

// NewPatientID генерирует идентификатор вида PT1A2B3C
func NewPatientID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PT" + strings.ToUpper(hex[:6])
}

// NewPatient создаёт пациента, при пустом ID генерирует новый
func NewPatient(name, age, gender, patientID string) *Patient {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		patientID = NewPatientID()
	}
	return &Patient{
		Name:      strings.TrimSpace(name),
		Age:       strings.TrimSpace(age),
		Gender:    strings.TrimSpace(gender),
		PatientID: patientID,
	}
}
