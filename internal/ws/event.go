package ws

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// EventType is the message discriminator on the progress channel.
type EventType string

const (
	EventStatusUpdate EventType = "status_update"
	EventCompleted    EventType = "completed"
	EventPing         EventType = "ping"
	// EventError is synthesized locally when the channel fails.
	EventError EventType = "error"
)

// Event is one typed message from a progress channel.
type Event struct {
	Type EventType

	// status_update
	Status       string
	Progress     int
	CurrentStage string
	Warning      string

	// completed
	DownloadURL string
	AppName     string

	// error
	Err error
}

// ChannelError is a transport failure or an unexpected close.
type ChannelError struct {
	GenerationID string
	Err          error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("progress channel %s: %v", e.GenerationID, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnexpectedClose marks a close that was not preceded by completed.
	ErrUnexpectedClose = errors.New("connection closed before completion")

	errUnknownType = errors.New("unknown message type")
)

type wireMessage struct {
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Progress     *int    `json:"progress"`
	CurrentStage string  `json:"current_stage"`
	Error        *string `json:"error"`
	DownloadURL  string  `json:"download_url"`
	AppName      string  `json:"app_name"`
}

// ParseEvent decodes one inbound frame.
func ParseEvent(data []byte) (Event, error) {
	var msg wireMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return Event{}, fmt.Errorf("malformed message: %w", err)
	}

	switch EventType(msg.Type) {
	case EventStatusUpdate:
		ev := Event{
			Type:         EventStatusUpdate,
			Status:       msg.Status,
			CurrentStage: msg.CurrentStage,
		}
		if msg.Progress != nil {
			ev.Progress = *msg.Progress
		}
		if msg.Error != nil {
			ev.Warning = *msg.Error
		}
		return ev, nil
	case EventCompleted:
		return Event{
			Type:        EventCompleted,
			DownloadURL: msg.DownloadURL,
			AppName:     msg.AppName,
		}, nil
	case EventPing:
		return Event{Type: EventPing}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
}
