package broadcast

import (
	"encoding/json"

	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

// EnvelopeType is the client→server message type.
type EnvelopeType string

const (
	EnvelopeSubscribe   EnvelopeType = "subscribe"
	EnvelopeUnsubscribe EnvelopeType = "unsubscribe"
	EnvelopeEvent       EnvelopeType = "event"
)

// InboundEnvelope is the single canonical client→server message. Payload
// contents are never logged.
type InboundEnvelope struct {
	Type      EnvelopeType    `json:"type"`
	Channel   string          `json:"channel"`
	RequestID string          `json:"requestId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Normalize maps legacy envelopes lacking a channel onto the default
// channel.
func (e *InboundEnvelope) Normalize() {
	if e.Channel == "" {
		e.Channel = providers.ChannelDefault
	}
}

// OwnerKey returns the subscription owner key for this envelope: the
// session ID on the session channel, the request ID otherwise.
func (e *InboundEnvelope) OwnerKey() string {
	if e.Channel == providers.ChannelSession {
		return e.SessionID
	}
	return e.RequestID
}

// SubscriptionKey builds the key a subscription and its backlog share.
func SubscriptionKey(channel, ownerKey string) string {
	return channel + ":" + ownerKey
}

// ackPayload is the subscribe acknowledgement sent back to the client.
type ackPayload struct {
	Type    string `json:"type"` // sub_ack or sub_nack
	Channel string `json:"channel"`
	Key     string `json:"key,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
