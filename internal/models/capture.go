package models

// CaptureMode tags the purpose of an active photo session.
type CaptureMode string

const (
	CaptureIdle             CaptureMode = "idle"
	CaptureRegisterExisting CaptureMode = "register_existing"
	CaptureRegisterNew      CaptureMode = "register_new_worker"
	CaptureVerify           CaptureMode = "verify"
)

// PoseGuidance lists the prescribed enrollment shot order; the prompt at
// index i guides the (i+1)th capture.
var PoseGuidance = [PhotosRequired]string{
	"look straight at the camera",
	"turn your head slightly to the left",
	"turn your head slightly to the right",
	"tilt your head slightly upward",
	"neutral expression, eyes open",
}
