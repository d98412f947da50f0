package models

// Worker is the client-side view of a server-managed employee. The client
// holds a read-mostly cached copy plus one persisted "currently selected"
// pointer; only HasFaceRegistered is ever flipped locally, after a
// successful enrollment round trip.
type Worker struct {
	ID                string `json:"id"`
	EmployeeCode      string `json:"employee_id"`
	Name              string `json:"name"`
	Department        string `json:"department"`
	Position          string `json:"position"`
	IsActive          bool   `json:"is_active"`
	HasFaceRegistered bool   `json:"has_face_registered"`
}
