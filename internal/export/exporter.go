package export

import (
	"fmt"
	"time"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// Format selects the rendered output type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

const historyTitle = "Attendance History"

// Exporter renders the local history in the supported formats.
type Exporter struct {
	csv   *CSVExporter
	pdf   *PDFExporter
	clock func() time.Time
}

// NewExporter wires the format renderers.
func NewExporter() *Exporter {
	return &Exporter{
		csv:   NewCSVExporter(),
		pdf:   NewPDFExporter(),
		clock: time.Now,
	}
}

// RenderHistory produces the export bytes for the given format.
func (e *Exporter) RenderHistory(records []models.AttendanceRecord, format Format) ([]byte, error) {
	data := HistoryDataset(records)
	switch format {
	case FormatCSV:
		return e.csv.Render(data)
	case FormatPDF:
		return e.pdf.Render(data, historyTitle, e.clock())
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
