// Package common provides the message types shared by the HTTP and websocket handlers
package common

import (
	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/console"
)

// Message types sent to websocket clients
const (
	MessageTypeLog     = "log"
	MessageTypeHistory = "history"
	MessageTypeModal   = "modal"
	MessageTypeError   = "error"
)

// LogMessage carries one newly appended activity log entry to a live client
type LogMessage struct {
	Type  string         `json:"type"`
	Entry activity.Entry `json:"entry"`
	Line  string         `json:"line"`
	// ScrollToEnd asks the view to keep the newest entry visible
	ScrollToEnd bool `json:"scrollToEnd"`
}

// NewLogMessage builds the live message for entry
func NewLogMessage(entry activity.Entry) LogMessage {
	return LogMessage{
		Type:        MessageTypeLog,
		Entry:       entry,
		Line:        entry.Line(),
		ScrollToEnd: true,
	}
}

// HistoryMessage replays retained entries when a client subscribes
type HistoryMessage struct {
	Type        string           `json:"type"`
	Entries     []activity.Entry `json:"entries"`
	Lines       []string         `json:"lines"`
	ScrollToEnd bool             `json:"scrollToEnd"`
}

// NewHistoryMessage builds the replay message for entries
func NewHistoryMessage(entries []activity.Entry) HistoryMessage {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return HistoryMessage{
		Type:        MessageTypeHistory,
		Entries:     entries,
		Lines:       lines,
		ScrollToEnd: true,
	}
}

// ModalMessage opens or, with a nil Modal, closes the device-info dialog
type ModalMessage struct {
	Type  string         `json:"type"`
	Modal *console.Modal `json:"modal"`
}

// SubscriptionRequest is sent by a websocket client
type SubscriptionRequest struct {
	Action  string              `json:"action"` // "subscribe", "unsubscribe", "list"
	Options SubscriptionOptions `json:"options"`
}

// SubscriptionOptions subscription options
type SubscriptionOptions struct {
	Tail int `json:"tail"` // historical entries to replay, 0 for none, -1 for all
}

// SubscriptionResult subscription result response
type SubscriptionResult struct {
	Action    string `json:"action"` // "subscribed", "unsubscribed", "list"
	ClientID  string `json:"clientId"`
	Active    bool   `json:"active"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse is sent when a websocket request cannot be handled
type ErrorResponse struct {
	Type      string `json:"type"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}
