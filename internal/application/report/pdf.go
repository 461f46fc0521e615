// Package report renders the downloadable portfolio report.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
)

// Data is everything a portfolio report renders.
type Data struct {
	UserID        string
	Tier          string
	GeneratedAt   time.Time
	Dashboard     *models.Dashboard
	Assets        []models.Asset
	Opportunities []models.Opportunity
}

// Renderer produces portfolio report PDFs.
type Renderer struct{}

// NewRenderer creates a report renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the PDF bytes for a report.
func (r *Renderer) Render(data *Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)

	r.cover(pdf, data)
	r.profile(pdf, data)
	r.assets(pdf, data.Assets)
	r.opportunities(pdf, data.Opportunities)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) cover(pdf *gofpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 60, "", "", 1, "", false, 0, "")
	pdf.CellFormat(0, 14, "Portfolio Intelligence Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 10, data.GeneratedAt.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, "Confidential", "", 1, "C", false, 0, "")
}

func (r *Renderer) profile(pdf *gofpdf.Fpdf, data *Data) {
	pdf.AddPage()
	r.heading(pdf, "Profile")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(17, 24, 39)
	rows := [][2]string{
		{"Member", data.UserID},
		{"Tier", data.Tier},
	}
	if data.Dashboard != nil {
		rows = append(rows,
			[2]string{"Net Worth", money(data.Dashboard.NetWorth, data.Dashboard.Currency)},
			[2]string{"Active Opportunities", fmt.Sprintf("%d", data.Dashboard.ActiveOpportunities)},
		)
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, row[0], "", 0, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "", false, 0, "")
	}
}

func (r *Renderer) assets(pdf *gofpdf.Fpdf, assets []models.Asset) {
	pdf.AddPage()
	r.heading(pdf, "Crown Vault Assets")

	if len(assets) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 8, "No assets on record.", "", 1, "", false, 0, "")
		return
	}

	widths := []float64{70, 40, 40, 30}
	headers := []string{"Asset", "Category", "Value", "Heirs"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(243, 244, 246)
	pdf.SetTextColor(17, 24, 39)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, a := range assets {
		pdf.CellFormat(widths[0], 7, clip(a.Name, 40), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, a.Category, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 7, money(a.Value, a.Currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%d", len(a.Heirs)), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
}

func (r *Renderer) opportunities(pdf *gofpdf.Fpdf, opps []models.Opportunity) {
	pdf.AddPage()
	r.heading(pdf, "Opportunities")

	if len(opps) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 8, "No opportunities in the current window.", "", 1, "", false, 0, "")
		return
	}

	pdf.SetTextColor(17, 24, 39)
	for _, o := range opps {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, clip(o.Title, 70), "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s  |  %s  |  score %.1f", o.Region, money(o.Value, "USD"), o.Score), "", 1, "", false, 0, "")
		pdf.Ln(2)
	}
}

func (r *Renderer) heading(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 12, title, "", 1, "", false, 0, "")
	pdf.SetDrawColor(209, 213, 219)
	pdf.Line(pdf.GetX(), pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(4)
}

func money(v float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %.2f", currency, v)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
