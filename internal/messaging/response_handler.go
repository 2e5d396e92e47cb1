// Package messaging provides response routing between the chat transport and
// the dialogue engine.
package messaging

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// MessageHandler processes one inbound message and returns the reply to
// deliver. The dialogue engine's HandleMessage is the production handler.
type MessageHandler func(ctx context.Context, from, text string, timestamp int64) (reply string, err error)

// DefaultFallbackMessage is sent when the handler fails. Internal error
// detail never reaches the user.
const DefaultFallbackMessage = "⚠️ We encountered an issue processing your message. Please try again."

// ResponseHandler drains the messaging service's response channel, routes
// every inbound message through the handler, and sends the reply back over
// the same service. Delivery receipts are drained and logged.
type ResponseHandler struct {
	msgService      Service
	handler         MessageHandler
	fallbackMessage string
}

// NewResponseHandler creates a ResponseHandler routing messages to handler.
func NewResponseHandler(msgService Service, handler MessageHandler) *ResponseHandler {
	return &ResponseHandler{
		msgService:      msgService,
		handler:         handler,
		fallbackMessage: DefaultFallbackMessage,
	}
}

// SetFallbackMessage overrides the message sent when the handler fails.
func (rh *ResponseHandler) SetFallbackMessage(message string) {
	rh.fallbackMessage = message
}

// Start begins processing responses and receipts from the messaging service.
// It returns immediately; processing runs until the context is cancelled or
// both channels close.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing")

	go func() {
		responses := rh.msgService.Responses()
		receipts := rh.msgService.Receipts()
		for {
			select {
			case <-ctx.Done():
				slog.Info("ResponseHandler stopping (context cancelled)")
				return
			case resp, ok := <-responses:
				if !ok {
					slog.Info("ResponseHandler stopping (responses channel closed)")
					return
				}
				rh.processResponse(ctx, resp)
			case receipt, ok := <-receipts:
				if !ok {
					// Stop selecting on a closed channel; responses keep flowing.
					receipts = nil
					continue
				}
				slog.Debug("ResponseHandler delivery receipt", "to", receipt.To, "status", receipt.Status)
			}
		}
	}()
}

// processResponse validates one inbound response, runs the handler, and
// sends the resulting reply.
func (rh *ResponseHandler) processResponse(ctx context.Context, response models.Response) {
	if err := response.Validate(); err != nil {
		slog.Warn("ResponseHandler dropping invalid response", "error", err, "from", response.From)
		return
	}

	canonicalFrom, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler sender validation failed", "error", err, "from", response.From)
		return
	}

	slog.Debug("ResponseHandler processing response", "from", canonicalFrom, "body_length", len(response.Body))

	reply, err := rh.handler(ctx, canonicalFrom, response.Body, response.Time)
	if err != nil {
		slog.Error("ResponseHandler handler failed", "error", err, "from", canonicalFrom)
		if sendErr := rh.msgService.SendMessage(ctx, canonicalFrom, rh.fallbackMessage); sendErr != nil {
			slog.Error("ResponseHandler failed to send fallback message", "error", sendErr, "from", canonicalFrom)
		}
		return
	}

	if reply == "" {
		slog.Debug("ResponseHandler handler produced empty reply, nothing to send", "from", canonicalFrom)
		return
	}
	if err := rh.msgService.SendMessage(ctx, canonicalFrom, reply); err != nil {
		slog.Error("ResponseHandler failed to send reply", "error", err, "from", canonicalFrom)
		return
	}
	slog.Info("ResponseHandler reply sent", "from", canonicalFrom, "reply_length", len(reply))
}
