// Package api provides HTTP handlers for IntakeFlow endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// healthHandler reports process liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success("ok"))
}

// conversationHandler returns the durable conversation record for a user.
// GET /conversations?user=<id>
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.conversationHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.conversationHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		slog.Warn("Server.conversationHandler: missing user parameter")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user parameter is required"))
		return
	}

	canonicalUser, err := s.msgService.ValidateAndCanonicalizeRecipient(userID)
	if err != nil {
		slog.Warn("Server.conversationHandler: user validation failed", "error", err, "user", userID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	turns, err := s.store.GetConversation(canonicalUser)
	if err != nil {
		slog.Error("Server.conversationHandler: failed to read conversation", "error", err, "user", canonicalUser)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read conversation"))
		return
	}

	slog.Debug("Server.conversationHandler: conversation read", "user", canonicalUser, "turns", len(turns))
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}
