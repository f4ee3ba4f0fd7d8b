package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

// Clinic реквизиты учреждения для шапки и подвала отчёта
type Clinic struct {
	Name     string
	Tagline  string
	Contact  string
	Address  string
	LogoPath string
}

const disclaimerText = "The scans show areas that could be fractures, dislocations, arthritis, " +
	"or no acute issues at all. To be sure, your doctor will review your history, examine you, " +
	"and may order additional tests or imaging. This summary is informational only and isn't " +
	"a substitute for professional medical advice. Please see a healthcare professional " +
	"for diagnosis and treatment."

var symptoms = [][2]string{
	{"Knee", "Joint pain, Swelling, Limited flexion/extension, Instability"},
	{"Spine", "Back pain, Restricted movement, Radiculopathy, Postural changes"},
	{"Heel", "Heel pain, Difficulty walking, Morning stiffness, Swelling"},
	{"Wrist", "Wrist pain, Limited range of motion, Grip weakness, Swelling"},
}

const (
	imageWidth  = 120.0
	imageHeight = 90.0
)

// PDFRenderer собирает отчёт в PDF (A4, мм)
type PDFRenderer struct {
	clinic   Clinic
	compress bool
}

func NewPDFRenderer(clinic Clinic) *PDFRenderer {
	return &PDFRenderer{clinic: clinic, compress: true}
}

// Render записывает отчёт в outputPath
func (r *PDFRenderer) Render(ctx context.Context, report *entity.Report, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Patient Scan Report", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.setHeaderFooter(pdf, tr)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Patient Scan Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	writePatient(pdf, tr, report)

	pageW, _ := pdf.GetPageSize()
	for i, item := range report.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		writeItem(pdf, tr, i+1, item, pageW)
	}

	writeClosing(pdf, tr, pageW)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (r *PDFRenderer) setHeaderFooter(pdf *fpdf.Fpdf, tr func(string) string) {
	c := r.clinic
	pdf.SetHeaderFunc(func() {
		if c.LogoPath != "" {
			if _, err := os.Stat(c.LogoPath); err == nil {
				pdf.ImageOptions(c.LogoPath, 10, 10, 30, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
			}
		}
		pdf.SetXY(45, 10)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(c.Name), "", 1, "L", false, 0, "")
		pdf.SetXY(45, 18)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, tr(c.Tagline), "", 1, "L", false, 0, "")
		pdf.SetXY(135, 10)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 8, tr(c.Contact), "", 1, "R", false, 0, "")
		pdf.SetXY(10, 30)
		pdf.CellFormat(0, 8, tr(c.Address), "", 1, "C", false, 0, "")
		pdf.SetFillColor(0, 121, 191)
		pdf.Rect(10, 40, 190, 3, "F")
		pdf.SetFillColor(228, 30, 37)
		pdf.Rect(10, 43, 190, 3, "F")
		pdf.Ln(15)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFillColor(100, 149, 237)
		pdf.Rect(0, pdf.GetY(), 210, 10, "F")
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(255, 255, 255)
		footer := fmt.Sprintf("Page %d || %s || %s", pdf.PageNo(), c.Name, c.Contact)
		pdf.CellFormat(0, 10, tr(footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
}

func writePatient(pdf *fpdf.Fpdf, tr func(string) string, report *entity.Report) {
	p := report.Patient
	const colW = 110.0
	row := func(left, right string) {
		pdf.CellFormat(colW, 10, tr(left), "", 0, "L", false, 0, "")
		pdf.CellFormat(colW, 10, tr(right), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	row("Patient Name: "+p.Name, "Radiologist Name: "+p.RadiologistName)
	row("Patient ID: "+p.PatientID, "Radiologist ID: "+p.RadiologistID)

	pdf.SetFont("Arial", "", 12)
	row("Age: "+p.Age, "Date: "+report.GeneratedAt.Format("2006-01-02"))
	row("Gender: "+p.Gender, "Time: "+report.GeneratedAt.Format("15:04:05"))
	pdf.Ln(10)
}

func writeItem(pdf *fpdf.Fpdf, tr func(string) string, n int, item entity.ReportItem, pageW float64) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Output Xray image %d:", n), "", 1, "L", false, 0, "")

	if _, err := os.Stat(item.AnnotatedPath); err == nil {
		_, pageH := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+imageHeight > pageH-bottom {
			pdf.AddPage()
		}
		y := pdf.GetY()
		pdf.ImageOptions(item.AnnotatedPath, (pageW-imageWidth)/2, y, imageWidth, imageHeight,
			false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		pdf.SetY(y + imageHeight)
	}

	pdf.Ln(10)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.Ln(5)

	section := func(heading, body string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s for %s:", heading, item.Title)), "", 1, "L", false, 0, "")
		pdf.SetLeftMargin(20)
		pdf.SetX(20)
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 8, tr(body), "", "L", false)
		pdf.SetLeftMargin(10)
	}

	section("Findings", item.Details.Findings)
	pdf.Ln(5)
	section("Risks", item.Details.Risks)
	pdf.Ln(5)
	section("Recommended Tests", item.Details.Tests)

	pdf.Ln(10)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.Ln(10)
}

func writeClosing(pdf *fpdf.Fpdf, tr func(string) string, pageW float64) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Disclaimer:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 8, tr(disclaimerText), "", "L", false)

	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Disease Symptoms Table:", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colW := [2]float64{40, 130}
	const lineH = 8.0
	x := (pageW - (colW[0] + colW[1])) / 2

	pdf.SetX(x)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colW[0], lineH, "Body Part", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], lineH, "Common Symptoms", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, row := range symptoms {
		pdf.SetX(x)
		pdf.CellFormat(colW[0], lineH, row[0], "1", 0, "L", false, 0, "")
		pdf.MultiCell(colW[1], lineH, tr(row[1]), "1", "L", false)
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Doctor's Comments:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 8, " ", "", "L", false)
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Signature: "+strings.Repeat("_", 20), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{"Name of Doctor: ", "Designation: ", "Contact No: "} {
		pdf.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "*End of Report*", "", 1, "C", false, 0, "")
}

var _ port.ReportRenderer = (*PDFRenderer)(nil)
