// Package snapshot defines the context record produced once per dictation cycle.
//
// A ContextSnapshot describes what the user was doing when push-to-talk went
// down: the foreground application, its focused window, any selected text, a
// screenshot (or the reason there is none), and a short activity summary. It
// is built fresh for every cycle, attached to one transcription request, and
// discarded.
package snapshot

import (
	"encoding/json"
	"strings"
	"time"
)

// Reasons reported when a screenshot is unavailable.
const (
	ReasonPermissionDenied  = "Screen recording permission not granted. Enable in System Settings > Privacy & Security > Screen Recording."
	ReasonNoFrontmostApp    = "No frontmost application"
	ReasonNoWindowList      = "Unable to read window list"
	ReasonCaptureFailed     = "Could not capture screenshot (screen recording permission or window access issue)"
	ReasonSizeLimitExceeded = "Could not capture screenshot within size limits"
	ReasonNotCaptured       = "Screenshot not captured"
)

// UnrecognizedActivity is the summary used when no foreground application
// could be determined.
const UnrecognizedActivity = "You are dictating in an unrecognized context."

// Metadata is what the accessibility layer reported about the foreground target.
type Metadata struct {
	AppName      string `json:"app_name,omitempty"`
	BundleID     string `json:"bundle_id,omitempty"`
	WindowTitle  string `json:"window_title,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
}

// Encoded is a screenshot that fit the transport budget.
type Encoded struct {
	DataURI  string `json:"data_uri"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Screenshot holds exactly one of an encoded image or the reason there is none.
// The zero value is unavailable with ReasonNotCaptured.
type Screenshot struct {
	encoded *Encoded
	reason  string
}

// Available wraps an encoded image.
func Available(e Encoded) Screenshot {
	return Screenshot{encoded: &e}
}

// Unavailable records why no image is attached.
func Unavailable(reason string) Screenshot {
	if reason == "" {
		reason = ReasonNotCaptured
	}
	return Screenshot{reason: reason}
}

// Encoded returns the image if one is attached.
func (s Screenshot) Encoded() (Encoded, bool) {
	if s.encoded == nil {
		return Encoded{}, false
	}
	return *s.encoded, true
}

// Reason returns the explanation for a missing image. It is empty when an
// image is attached.
func (s Screenshot) Reason() string {
	if s.encoded != nil {
		return ""
	}
	if s.reason == "" {
		return ReasonNotCaptured
	}
	return s.reason
}

// IsAvailable reports whether an encoded image is attached.
func (s Screenshot) IsAvailable() bool { return s.encoded != nil }

// Status is the human-readable screenshot line shown to the user.
func (s Screenshot) Status() string {
	if s.encoded != nil {
		mime := s.encoded.MIMEType
		if mime == "" {
			mime = "image"
		}
		return "available (" + mime + ")"
	}
	return s.Reason()
}

// WithoutImage returns a copy that keeps the status but drops the payload.
func (s Screenshot) WithoutImage() Screenshot {
	if s.encoded == nil {
		return s
	}
	e := *s.encoded
	e.DataURI = ""
	return Screenshot{encoded: &e}
}

type screenshotJSON struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	DataURI  string `json:"data_uri,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// MarshalJSON encodes the variant as {"status": "available"|"unavailable", ...}.
func (s Screenshot) MarshalJSON() ([]byte, error) {
	if e, ok := s.Encoded(); ok {
		return json.Marshal(screenshotJSON{
			Status:   "available",
			DataURI:  e.DataURI,
			MIMEType: e.MIMEType,
			Width:    e.Width,
			Height:   e.Height,
		})
	}
	return json.Marshal(screenshotJSON{Status: "unavailable", Reason: s.Reason()})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *Screenshot) UnmarshalJSON(data []byte) error {
	var v screenshotJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Status == "available" {
		*s = Available(Encoded{DataURI: v.DataURI, MIMEType: v.MIMEType, Width: v.Width, Height: v.Height})
		return nil
	}
	*s = Unavailable(v.Reason)
	return nil
}

// ContextSnapshot is the immutable record of one dictation cycle's context.
type ContextSnapshot struct {
	// CycleID correlates the snapshot with log lines for the same cycle.
	CycleID string `json:"cycle_id"`

	Metadata

	// ActivitySummary is never empty and holds at most two sentences.
	ActivitySummary string `json:"activity_summary"`

	Screenshot Screenshot `json:"screenshot"`

	CapturedAt time.Time `json:"captured_at"`
}

// Summary renders the multi-line context block attached to the transcript
// post-processing request.
func (c ContextSnapshot) Summary() string {
	lines := []string{"Current activity: " + c.ActivitySummary}

	app := c.AppName
	if app == "" {
		app = "Unknown"
	}
	lines = append(lines, "Current app: "+app)

	if c.BundleID != "" {
		lines = append(lines, "Bundle ID: "+c.BundleID)
	}
	if c.WindowTitle != "" {
		lines = append(lines, "Window: "+c.WindowTitle)
	}
	if c.SelectedText != "" {
		lines = append(lines, "Visible selected text:\n"+c.SelectedText)
	}
	lines = append(lines, "Screenshot status: "+c.Screenshot.Status())

	return strings.Join(lines, "\n")
}
