package entities

// EventType identifies the kind of an outbound server→client event.
type EventType string

const (
	EventResultPatch    EventType = "RESULT_PATCH"
	EventAssistant      EventType = "assistant"
	EventAssistantError EventType = "assistant_error"
	EventStatus         EventType = "status"
)

// OutboundEvent is the server→client event envelope.
type OutboundEvent struct {
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AssistantErrorPayload carries only an error code; the UI renders its own
// text for it. Never a hardcoded user-facing sentence.
type AssistantErrorPayload struct {
	Code string `json:"code"`
}

// StatusPayload mirrors the polling response for push delivery.
type StatusPayload struct {
	RequestID string    `json:"request_id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
}
