package historian

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// ExportCSV writes every audit record for a run as CSV, one row per write.
func (h *Historian) ExportCSV(w io.Writer, runID string) error {
	rows, err := h.QueryAudit(runID)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tag", "old", "new", "reason", "at"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Tag,
			fmt.Sprintf("%v", r.Old),
			fmt.Sprintf("%v", r.New),
			r.Reason,
			r.At.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes every audit record for a run as a JSON array.
func (h *Historian) ExportJSON(w io.Writer, runID string) error {
	rows, err := h.QueryAudit(runID)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// ExportPDF writes a customer-facing PDF report for a run: the audit trail
// and every attacker campaign summary recorded against it.
func (h *Historian) ExportPDF(w io.Writer, runID string) error {
	audit, err := h.QueryAudit(runID)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}
	campaigns, err := h.QueryCampaigns(runID)
	if err != nil {
		return fmt.Errorf("query campaigns: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Run Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 7, "Run ID:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, runID, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Audit Trail", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(audit) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "No audit records.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(50, 7, "Tag", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "Old", "1", 0, "R", true, 0, "")
		pdf.CellFormat(25, 7, "New", "1", 0, "R", true, 0, "")
		pdf.CellFormat(50, 7, "Reason", "1", 0, "L", true, 0, "")
		pdf.CellFormat(0, 7, "At", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 8)
		for _, r := range audit {
			pdf.CellFormat(50, 6, truncatePDF(r.Tag, 28), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%.3f", r.Old), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%.3f", r.New), "1", 0, "R", false, 0, "")
			pdf.CellFormat(50, 6, truncatePDF(r.Reason, 28), "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, r.At.Format("15:04:05.000"), "1", 1, "L", false, 0, "")
		}
	}

	if len(campaigns) > 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Attacker Campaigns", "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(30, 7, "Kind", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "State", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "Attempted", "1", 0, "R", true, 0, "")
		pdf.CellFormat(20, 7, "Failed", "1", 0, "R", true, 0, "")
		pdf.CellFormat(20, 7, "Dropped", "1", 0, "R", true, 0, "")
		pdf.CellFormat(0, 7, "Pending", "1", 1, "R", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, c := range campaigns {
			pdf.CellFormat(30, 6, c.AttackerKind, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, c.State, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%d", c.WritesAttempted), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", c.WritesFailed), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", c.WritesDropped), "1", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprintf("%d", c.PendingAtEnd), "1", 1, "R", false, 0, "")
		}
	}

	return pdf.Output(w)
}

func truncatePDF(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
