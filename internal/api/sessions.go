package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nlsql/nlsql/internal/conversation"
)

type messageRequest struct {
	Input string `json:"input"`
}

type resultPayload struct {
	SQL        string    `json:"sql,omitempty"`
	Columns    []string  `json:"columns"`
	Rows       [][]any   `json:"rows"`
	RowCount   int       `json:"row_count"`
	DurationMs int64     `json:"duration_ms"`
	ExecutedAt time.Time `json:"executed_at,omitzero"`
}

type outcomeResponse struct {
	SessionID string         `json:"session_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	SQL       string         `json:"sql,omitempty"`
	Merged    bool           `json:"merged"`
	Result    *resultPayload `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type sessionResponse struct {
	SessionID            string              `json:"session_id"`
	CreatedAt            time.Time           `json:"created_at"`
	PendingClarification bool                `json:"pending_clarification"`
	Turns                []conversation.Turn `json:"turns"`
	Results              []resultPayload     `json:"results"`
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "database is not configured", false, nil)
		return
	}
	tables, err := deps.Tables.Tables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "database connection failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session registry is not configured", false, nil)
		return
	}
	session := deps.Sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

func handleListSessions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session registry is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": deps.Sessions.IDs()})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	conv := session.Conversation
	results := conv.Results()
	payload := sessionResponse{
		SessionID:            session.ID,
		CreatedAt:            session.CreatedAt,
		PendingClarification: conv.PendingClarification(),
		Turns:                conv.Turns(),
		Results:              make([]resultPayload, 0, len(results)),
	}
	for _, result := range results {
		payload.Results = append(payload.Results, resultPayload{
			SQL:        result.SQL,
			Columns:    result.Columns,
			Rows:       result.Rows,
			RowCount:   len(result.Rows),
			DurationMs: result.Duration.Milliseconds(),
			ExecutedAt: result.ExecutedAt,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session registry is not configured", false, nil)
		return
	}
	if err := deps.Sessions.Delete(r.PathValue("id")); err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleResetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	session.Lock()
	session.Conversation.Reset()
	session.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"session_id": session.ID, "status": "reset"})
}

func handleSubmitMessage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Machine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASSISTANT_NOT_CONFIGURED", "assistant is not configured", false, nil)
		return
	}
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}

	var request messageRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid message request body", false, map[string]any{"details": err.Error()})
		return
	}

	session.Lock()
	outcome := deps.Machine.Submit(r.Context(), session.Conversation, request.Input)
	session.Unlock()

	response := outcomeResponse{
		SessionID: session.ID,
		Kind:      string(outcome.Kind),
		Message:   outcome.Message,
		SQL:       outcome.SQL,
		Merged:    outcome.Merged,
	}
	if outcome.Err != nil {
		response.Error = outcome.Err.Error()
	}
	if outcome.Result != nil {
		response.Result = &resultPayload{
			Columns:    outcome.Result.Columns,
			Rows:       outcome.Result.Rows,
			RowCount:   outcome.Result.RowCount(),
			DurationMs: outcome.Result.Duration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func lookupSession(deps Dependencies, w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session registry is not configured", false, nil)
		return nil, false
	}
	session, err := deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false, map[string]any{"session_id": r.PathValue("id")})
			return nil, false
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_LOOKUP_FAILED", err.Error(), true, nil)
		return nil, false
	}
	return session, true
}
