package models

import "time"

// EventType distinguishes the two attendance events. Wire values follow the
// server protocol.
type EventType string

const (
	EventEntrance EventType = "entrada"
	EventExit     EventType = "salida"
)

// Valid returns true when the event type is a supported value.
func (t EventType) Valid() bool {
	switch t {
	case EventEntrance, EventExit:
		return true
	default:
		return false
	}
}

// VerificationMethod records how an attendance event was evidenced.
type VerificationMethod string

const (
	MethodFacial VerificationMethod = "facial"
	MethodManual VerificationMethod = "manual"
)

// Pipeline-wide constants.
const (
	// PhotosRequired is the fixed enrollment shot count.
	PhotosRequired = 5
	// HistoryLimit caps the locally retained confirmed-record history.
	HistoryLimit = 20
	// VerifyTimeout bounds one face-verification round trip.
	VerifyTimeout = 10 * time.Second
	// MaxPhotoWidth bounds normalized photo width before upload.
	MaxPhotoWidth = 800
	// PhotoJPEGQuality is the re-encode quality for normalized photos.
	PhotoJPEGQuality = 85
)

// DisplayTimeLayout formats confirmed-record timestamps for local display.
const DisplayTimeLayout = "02/01/2006 15:04:05"

// AttendanceRecord is a server-confirmed attendance event retained in local
// history. Immutable once created; history keeps the HistoryLimit most
// recent, newest first.
type AttendanceRecord struct {
	ID                 string             `json:"id"`
	WorkerName         string             `json:"worker_name"`
	EventType          EventType          `json:"event_type"`
	Timestamp          string             `json:"timestamp"`
	Latitude           *float64           `json:"latitude,omitempty"`
	Longitude          *float64           `json:"longitude,omitempty"`
	Address            string             `json:"address,omitempty"`
	IsOfflineSync      bool               `json:"is_offline_sync"`
	FaceConfidence     *float64           `json:"face_confidence,omitempty"`
	VerificationMethod VerificationMethod `json:"verification_method,omitempty"`
}

// PendingRecord is a locally queued attendance intent created while the
// device was offline. Never mutated after creation: deleted on successful
// batch sync, retained otherwise. LocalID is a client-generated handle for
// local de-duplication and debugging only; it is never sent to the server
// as an identity.
type PendingRecord struct {
	LocalID   string    `json:"local_id"`
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Address   string    `json:"address,omitempty"`

	// Exactly one evidence payload is set: EmployeeID/EmployeeName for a
	// manual marking, Photo (base64 JPEG data URI) for deferred facial
	// verification.
	EmployeeID   string `json:"employee_id,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	Photo        string `json:"photo,omitempty"`
}

// IsManual reports whether the pending record carries a manual-marking
// payload rather than an embedded photo.
func (r PendingRecord) IsManual() bool {
	return r.Photo == ""
}

// Location pairs resolved coordinates with a display address. Nil
// coordinates mean resolution was denied or failed; submissions proceed
// with the address alone.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address"`
}
