// Package dto defines the JSON wire shapes exchanged with the remote
// verification/recording service.
package dto

import "github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"

// EmployeesResponse wraps the worker listing.
type EmployeesResponse struct {
	Success   bool            `json:"success"`
	Employees []models.Worker `json:"employees"`
	Message   string          `json:"message,omitempty"`
}

// VerifyRequest submits one photo for face matching.
type VerifyRequest struct {
	Photo     string   `json:"photo"`
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// VerifyResponse reports the match outcome. Confidence arrives as a
// percentage string ("87%").
type VerifyResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Record   struct {
		ID string `json:"id"`
	} `json:"record"`
	Employee struct {
		Name string `json:"name"`
	} `json:"employee"`
	Verification struct {
		Confidence string `json:"confidence"`
	} `json:"verification"`
}

// RegisterFaceRequest enrolls reference photos for an existing worker.
type RegisterFaceRequest struct {
	EmployeeID string   `json:"employee_id"`
	Photos     []string `json:"photos"`
}

// MarkAttendanceRequest records a manually evidenced event.
type MarkAttendanceRequest struct {
	EmployeeName string   `json:"employee_name"`
	EmployeeID   string   `json:"employee_id"`
	Type         string   `json:"type"`
	Timestamp    string   `json:"timestamp"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Address      string   `json:"address,omitempty"`
}

// MarkAttendanceResponse acknowledges a manual marking.
type MarkAttendanceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Record  struct {
		ID string `json:"id"`
	} `json:"record"`
}

// CreateEmployeeRequest combines worker creation with enrollment photos.
type CreateEmployeeRequest struct {
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Photos     []string `json:"photos"`
}

// CreateEmployeeResponse acknowledges worker creation.
type CreateEmployeeResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Employee struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"employee"`
}

// OfflineRecord is the sync-wire shape of a queued record. The client-local
// id is deliberately absent.
type OfflineRecord struct {
	Type         string   `json:"type"`
	Timestamp    string   `json:"timestamp"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Address      string   `json:"address,omitempty"`
	EmployeeID   string   `json:"employee_id,omitempty"`
	EmployeeName string   `json:"employee_name,omitempty"`
	Photo        string   `json:"photo,omitempty"`
}

// OfflineRecordFromPending strips the local id off a queued record.
func OfflineRecordFromPending(p models.PendingRecord) OfflineRecord {
	return OfflineRecord{
		Type:         string(p.EventType),
		Timestamp:    p.Timestamp,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Address:      p.Address,
		EmployeeID:   p.EmployeeID,
		EmployeeName: p.EmployeeName,
		Photo:        p.Photo,
	}
}

// SyncRequest carries the entire offline queue as one batch.
type SyncRequest struct {
	OfflineRecords []OfflineRecord `json:"offline_records"`
}

// SyncResponse reports how many batch records the server accepted.
type SyncResponse struct {
	Success     bool   `json:"success"`
	SyncedCount int    `json:"synced_count"`
	Message     string `json:"message,omitempty"`
}

// GenericResponse covers endpoints that only signal success/failure.
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HistoryResponse wraps server-side attendance history.
type HistoryResponse struct {
	Success bool                      `json:"success"`
	Records []models.AttendanceRecord `json:"records"`
	Message string                    `json:"message,omitempty"`
}
