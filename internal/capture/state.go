package capture

import (
	"github.com/vbonduro/betelcare/internal/domain"
)

type State int

const (
	Idle State = iota
	CameraActive
	ImageSelected
	Submitting
	ResultReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CameraActive:
		return "camera_active"
	case ImageSelected:
		return "image_selected"
	case Submitting:
		return "submitting"
	case ResultReady:
		return "result_ready"
	default:
		return "unknown"
	}
}

// Notice is a non-fatal condition shown to the user after an operation. The
// values double as localization keys.
type Notice string

const (
	NoticeNone              Notice = ""
	NoticeCameraUnavailable Notice = "camera_unavailable"
	NoticePredictionFailed  Notice = "prediction_failed"
)

// Snapshot is a point-in-time copy of the machine for rendering.
type Snapshot struct {
	State      State
	Image      *domain.Image
	PreviewKey string
	Result     *domain.DiagnosisResult
	Notice     Notice
	CameraLive bool
}

func (s Snapshot) HasImage() bool  { return !s.Image.Empty() }
func (s Snapshot) CanSubmit() bool { return s.State == ImageSelected && s.HasImage() }

func (s Snapshot) Theme() domain.Theme {
	if s.Result == nil {
		return domain.ThemeNeutral
	}
	return domain.ThemeFor(s.Result.Severity)
}
