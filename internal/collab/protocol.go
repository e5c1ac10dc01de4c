package collab

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypeEditorEvent    = "editor.event"
	TypeReportGenerate = "report.generate"

	// Server to client
	TypeEditorRender     = "editor.render"
	TypeReportProcessing = "report.processing"
	TypeReportDone       = "report.done"
	TypeReportFailed     = "report.failed"
	TypeError            = "error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ReportFailedPayload is the payload for report.failed messages.
type ReportFailedPayload struct {
	Detail string `json:"detail"`
}
