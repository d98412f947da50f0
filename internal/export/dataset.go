// Package export renders the local attendance history to portable files.
package export

import (
	"fmt"
	"strconv"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

var historyHeaders = []string{"Worker", "Event", "Time", "Location", "Method", "Confidence", "Offline"}

// HistoryDataset flattens confirmed records (newest first, as stored) into
// an exportable table.
func HistoryDataset(records []models.AttendanceRecord) Dataset {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		confidence := ""
		if rec.FaceConfidence != nil {
			confidence = fmt.Sprintf("%.0f%%", *rec.FaceConfidence*100)
		}
		rows = append(rows, []string{
			rec.WorkerName,
			eventLabel(rec.EventType),
			rec.Timestamp,
			rec.Address,
			string(rec.VerificationMethod),
			confidence,
			strconv.FormatBool(rec.IsOfflineSync),
		})
	}
	return Dataset{Headers: historyHeaders, Rows: rows}
}

func eventLabel(t models.EventType) string {
	switch t {
	case models.EventEntrance:
		return "entrance"
	case models.EventExit:
		return "exit"
	default:
		return string(t)
	}
}
