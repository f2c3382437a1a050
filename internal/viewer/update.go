package viewer

import "github.com/AaronLay10/SemanticZoom/internal/controls"

// Update types pushed to the page.
const (
	UpdateSession   = "session"
	UpdateContent   = "content"
	UpdateTransform = "transform"
	UpdateControls  = "controls"
	UpdateStatus    = "status"
)

// Update is one change for the page to apply. Controls updates carry the
// control view fields inline.
type Update struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Surface string `json:"surface,omitempty"`
	Markup  string `json:"markup,omitempty"`
	ViewBox string `json:"viewBox,omitempty"`
	Value   string `json:"value,omitempty"`
	Text    string `json:"text,omitempty"`

	*controls.View
}
