package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"aria-access-backend/internal/normalize"
	"aria-access-backend/internal/relay"
	"aria-access-backend/internal/store"
	"aria-access-backend/internal/types"
)

const maxToolPayload = 32 << 20 // audio payloads arrive base64-encoded

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":        "ok",
		"tools":         s.toolbox.IDs(),
		"live_sessions": s.registry.Len(),
	}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			status["database"] = "unreachable"
		} else {
			status["database"] = "ok"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleToolList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.toolbox.Infos())
}

func (s *Server) handleToolProcess(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "toolID")
	tool, ok := s.toolbox.Get(toolID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("tool '%s' not found", toolID))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxToolPayload))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	sid := getOrCreateSessionID(r, w)

	result, err := tool.Process(r.Context(), sid, payload)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.audit(sid, toolID, payload, result)

	w.Header().Set("X-Session-Id", sid)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusBadRequest, "no session")
		return
	}
	transcript := s.memory.Transcript(sid)
	out := make([]map[string]string, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, map[string]string{"role": m.Role, "content": m.Content})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessionId": sid, "messages": out})
}

// handleSessionInteractions serves the persisted audit log for the current
// session. It requires the database store.
func (s *Server) handleSessionInteractions(w http.ResponseWriter, r *http.Request) {
	if s.interactions == nil {
		s.writeError(w, http.StatusNotFound, "interaction audit is not enabled")
		return
	}
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusBadRequest, "no session")
		return
	}
	recent, err := s.interactions.Recent(sid, 20)
	if err != nil {
		s.log.Error("failed to load interactions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load interactions")
		return
	}
	out := make([]map[string]any, 0, len(recent))
	for _, i := range recent {
		out = append(out, map[string]any{
			"tool":       i.Tool,
			"success":    i.Success,
			"outcome":    i.Outcome,
			"created_at": i.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessionId": sid, "interactions": out})
}

// handleSessionClear forgets everything tied to the current session:
// transcript, pending clarification, stored preferences, and the cookie.
func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusBadRequest, "no session")
		return
	}
	s.memory.ClearTranscript(sid)
	s.memory.ClearPendingClarification(sid)
	if s.prefs != nil {
		if err := s.prefs.Clear(sid); err != nil {
			s.log.Warn("failed to clear preferences", zap.String("session", sid), zap.Error(err))
		}
	}
	ClearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleAgentEvents opens (or replaces) the live session for (userID, kind)
// and streams SSE frames until the client disconnects or the agent stream
// ends. The session is always released on exit; a release racing a rapid
// reconnect leaves the newer session untouched.
func (s *Server) handleAgentEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	kind, userID, err := agentParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Session lifetime is decoupled from this request: sends arrive on a
	// separate connection while the stream is open.
	sess, err := s.registry.Create(context.Background(), userID, kind)
	if err != nil {
		s.log.Error("failed to open live session",
			zap.String("kind", kind), zap.String("user", userID), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "failed to open agent session")
		return
	}
	defer s.registry.Release(sess)

	s.log.Info("live session connected",
		zap.String("session", sess.Key), zap.String("kind", kind))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	write := func(f relay.Frame) error {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := relay.Translate(r.Context(), sess.Stream.Events(), write, s.log); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("live stream ended", zap.String("session", sess.Key), zap.Error(err))
	}
	s.log.Info("live session disconnected", zap.String("session", sess.Key))
}

func (s *Server) handleAgentSend(w http.ResponseWriter, r *http.Request) {
	kind, userID, err := agentParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var msg types.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.registry.Dispatch(userID, kind, msg); err != nil {
		var unsupported *relay.UnsupportedMIMEError
		var decodeErr *relay.DecodeError
		switch {
		case errors.As(err, &unsupported), errors.As(err, &decodeErr):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, relay.ErrNoSession):
			s.writeError(w, http.StatusNotFound, "no active session; open the event stream first")
		case errors.Is(err, relay.ErrSessionClosed):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, types.SendResponse{Status: "sent"})
}

// handleAgentClose tears down the live session for (userID, kind) without
// waiting for the event stream to notice the disconnect.
func (s *Server) handleAgentClose(w http.ResponseWriter, r *http.Request) {
	kind, userID, err := agentParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.registry.Remove(userID, kind)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func agentParams(r *http.Request) (kind, userID string, err error) {
	kind = chi.URLParam(r, "kind")
	userID = strings.TrimSpace(chi.URLParam(r, "userID"))
	if kind != relay.KindSpeech && kind != relay.KindSearch {
		return "", "", fmt.Errorf("unknown agent kind '%s'", kind)
	}
	if userID == "" {
		return "", "", fmt.Errorf("user id is required")
	}
	return kind, userID, nil
}

// audit records a tool invocation when the database store is configured.
func (s *Server) audit(sessionID, toolID string, payload []byte, result any) {
	if s.interactions == nil {
		return
	}
	success := false
	outcome := ""
	switch v := result.(type) {
	case *types.ToolResponse:
		success = v.Success
		outcome = v.Message
	case *types.InterpretResponse:
		success = v.Success
		if act, ok := v.Data.(normalize.Action); ok {
			outcome = act.Action
		} else {
			outcome = v.Error
		}
	}
	err := s.interactions.Save(store.Interaction{
		SessionID: sessionID,
		Tool:      toolID,
		Input:     clip(string(payload), 2000),
		Success:   success,
		Outcome:   outcome,
	})
	if err != nil {
		s.log.Warn("failed to record interaction", zap.String("tool", toolID), zap.Error(err))
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
