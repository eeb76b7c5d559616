// Package delivery hands rendered reports to the messaging side.
package delivery

import (
	"context"
	"encoding/json"
	"time"
)

// Message is one text to deliver.
type Message struct {
	// Destination identifies the recipient (chat, phone number, channel).
	Destination string
	// Text is the literal multi-line body.
	Text string
	// Document is the source document name, if any.
	Document string
}

// Sender delivers messages. Implementations own their retry policy.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OutboundMessage is the wire form published for a Message.
type OutboundMessage struct {
	Destination string    `json:"destination"`
	Text        string    `json:"text"`
	Document    string    `json:"document,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewOutboundMessage stamps msg with the current time.
func NewOutboundMessage(msg Message) *OutboundMessage {
	return &OutboundMessage{
		Destination: msg.Destination,
		Text:        msg.Text,
		Document:    msg.Document,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OutboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OutboundMessageFromJSON decodes a published message.
func OutboundMessageFromJSON(data []byte) (*OutboundMessage, error) {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
