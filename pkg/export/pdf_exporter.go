package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ContractPDFExporter renders contract HTML into a printable PDF document.
type ContractPDFExporter struct{}

// NewContractPDFExporter constructs a PDF exporter.
func NewContractPDFExporter() *ContractPDFExporter {
	return &ContractPDFExporter{}
}

var (
	blockTagPattern = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|br)>|<br\s*/?>`)
	anyTagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// Render creates a PDF from the rendered contract HTML. Block-level tags
// become line breaks; remaining markup is stripped.
func (e *ContractPDFExporter) Render(contractHTML, title string) ([]byte, error) {
	if strings.TrimSpace(contractHTML) == "" {
		return nil, fmt.Errorf("contract body is empty")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "", 11)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range htmlToLines(contractHTML) {
		if line == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func htmlToLines(html string) []string {
	text := blockTagPattern.ReplaceAllString(html, "\n")
	text = anyTagPattern.ReplaceAllString(text, "")

	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, raw := range rawLines {
		lines = append(lines, strings.TrimSpace(raw))
	}
	return lines
}
