// Package models defines the core data structures for IntakeFlow.
//
// It includes conversation turns, inbound responses, delivery receipts, and
// API response envelopes shared across modules.
package models

import (
	"errors"
)

// Validation constants for inbound messages.
const (
	// MaxMessageLength defines the maximum allowed length for an inbound message body.
	MaxMessageLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrEmptyMessage   = errors.New("message body cannot be empty")
	ErrMessageTooLong = errors.New("message body exceeds maximum length")
)

// Sender identifies which party produced a conversation turn.
type Sender string

const (
	// SenderUser marks a turn written by the participant.
	SenderUser Sender = "user"
	// SenderBot marks a turn written by the intake bot.
	SenderBot Sender = "bot"
)

// Turn is one message exchange unit in a conversation, tagged by sender.
// Time is a Unix timestamp in seconds; the store fills it at append time
// when left zero.
type Turn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   int64  `json:"time,omitempty"`
}

// Response represents an incoming message from a participant, as delivered
// by the chat transport.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Validate checks an inbound response for transport-level problems before it
// reaches the dialogue engine.
func (r *Response) Validate() error {
	if r.From == "" {
		return ErrEmptyUserID
	}
	if r.Body == "" {
		return ErrEmptyMessage
	}
	if len(r.Body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records the delivery status of one outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope returned by all HTTP endpoints.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success builds an APIResponse carrying a result payload.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// Error builds an APIResponse carrying an error message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
