// Package notification queues tournament emails and delivers them.
//
// The composer hands a Message to a Queue and returns without waiting for
// delivery. MemoryQueue feeds an in-process Worker; MQTTQueue and
// WebhookQueue hand the message to an external delivery service.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/debatetab/debatetab/internal/errors"
)

// MessageType discriminates template emails from free-form ones.
type MessageType string

const (
	// TypeEmail is an email rendered from an event template.
	TypeEmail MessageType = "email"
	// TypeCustomEmail is an email with an explicit subject and body.
	TypeCustomEmail MessageType = "email_custom"
)

// Sentinel errors for queue operations.
var (
	// ErrDispatch wraps every failure to hand a message to a queue.
	ErrDispatch = errors.NewStd("notification dispatch failed")

	// ErrQueueFull indicates the in-process queue buffer is full.
	ErrQueueFull = errors.NewStd("notification queue full")

	// ErrQueueClosed indicates the queue no longer accepts messages.
	ErrQueueClosed = errors.NewStd("notification queue closed")

	// ErrInvalidMessage indicates a message that cannot be delivered.
	ErrInvalidMessage = errors.NewStd("invalid notification message")
)

// Recipient identifies a person to email. Email is set for custom emails
// and resolved by the worker for template emails.
type Recipient struct {
	ID    uint   `json:"id"`
	Email string `json:"email,omitempty"`
}

// Message is one send request.
type Message struct {
	ID         string         `json:"id"`
	Type       MessageType    `json:"type"`
	Tournament uint           `json:"tournament"`
	SendTo     []Recipient    `json:"send_to"`
	Event      EventType      `json:"event,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"message,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewCustomEmail returns a free-form email message.
func NewCustomEmail(tournamentID uint, subject, body string, sendTo []Recipient) *Message {
	return &Message{
		ID:         uuid.New().String(),
		Type:       TypeCustomEmail,
		Tournament: tournamentID,
		SendTo:     sendTo,
		Subject:    subject,
		Body:       body,
		CreatedAt:  time.Now(),
	}
}

// NewTemplateEmail returns a message rendered from the event's template.
func NewTemplateEmail(tournamentID uint, event EventType, extra map[string]any, recipientIDs []uint) *Message {
	sendTo := make([]Recipient, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		sendTo = append(sendTo, Recipient{ID: id})
	}
	return &Message{
		ID:         uuid.New().String(),
		Type:       TypeEmail,
		Tournament: tournamentID,
		SendTo:     sendTo,
		Event:      event,
		Extra:      extra,
		CreatedAt:  time.Now(),
	}
}

// RecipientIDs returns the person IDs of the message recipients.
func (m *Message) RecipientIDs() []uint {
	ids := make([]uint, 0, len(m.SendTo))
	for _, r := range m.SendTo {
		ids = append(ids, r.ID)
	}
	return ids
}

// Validate checks that the message can be delivered.
func (m *Message) Validate() error {
	if m == nil {
		return errors.Join(ErrInvalidMessage, errors.NewStd("nil message"))
	}
	switch m.Type {
	case TypeCustomEmail:
		if m.Subject == "" {
			return errors.Join(ErrInvalidMessage, errors.NewStd("custom email without subject"))
		}
	case TypeEmail:
		if !m.Event.Valid() {
			return errors.Join(ErrInvalidMessage, errors.NewStd("unknown email event "+string(m.Event)))
		}
	default:
		return errors.Join(ErrInvalidMessage, errors.NewStd("unknown message type "+string(m.Type)))
	}
	return nil
}

// Queue is the asynchronous delivery channel.
type Queue interface {
	// Enqueue hands msg to the channel without waiting for delivery.
	// Failures wrap ErrDispatch.
	Enqueue(ctx context.Context, msg *Message) error
	// Name identifies the backend in logs and metrics.
	Name() string
	Close() error
}

// Email is a single rendered email.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one email synchronously.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

func dispatchError(queue string, err error) error {
	return errors.New(errors.Join(ErrDispatch, err)).
		Component("notification").
		Category(errors.CategoryQueue).
		Context("queue", queue).
		Build()
}
