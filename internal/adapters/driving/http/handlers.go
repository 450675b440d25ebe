package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConnectorInfo describes one registered connector
type ConnectorInfo struct {
	Name     string              `json:"name"`
	Provider domain.ProviderType `json:"provider"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	out := make([]ConnectorInfo, 0)
	for _, c := range s.connectors.All() {
		out = append(out, ConnectorInfo{Name: c.Name(), Provider: c.Provider()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	connector, ok := s.lookup(w, r)
	if !ok {
		return
	}

	// The code is optional: an empty body reconnects from stored
	// credentials.
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := connector.Connect(r.Context(), req.Code); err != nil {
		s.writeDomainError(w, connector.Name(), "connect", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	connector, ok := s.lookup(w, r)
	if !ok {
		return
	}

	// Without ?kind= every supported kind is synced.
	if kind := r.URL.Query().Get("kind"); kind != "" {
		result, err := connector.Sync(r.Context(), domain.Kind(kind))
		if err != nil {
			s.writeDomainError(w, connector.Name(), "sync", err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	results, err := connector.SyncAll(r.Context())
	if err != nil {
		s.writeDomainError(w, connector.Name(), "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetSyncState(w http.ResponseWriter, r *http.Request) {
	connector, ok := s.lookup(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		writeError(w, http.StatusBadRequest, "kind query parameter required")
		return
	}

	state, err := s.syncState.GetState(r.Context(), connector.Name(), domain.Kind(kind))
	if err != nil || state == nil {
		writeError(w, http.StatusNotFound, "no sync state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	connector, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := connector.Disconnect(r.Context()); err != nil {
		s.writeDomainError(w, connector.Name(), "disconnect", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// handleAuthURL starts the OAuth flow: it signs a state token binding
// the flow to the requesting user and returns the provider redirect.
func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	provider := domain.ProviderType(r.PathValue("provider"))
	flow, ok := s.authFlows[provider]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}

	state, err := s.states.Issue(userID, provider)
	if err != nil {
		s.logger.Error("state issue failed", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start authorization")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": flow.BuildAuthURL(state)})
}

// handleAuthCallback finishes the OAuth flow: it verifies the state,
// resolves the connector the flow belongs to, and exchanges the code.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "code and state query parameters required")
		return
	}

	userID, provider, err := s.states.Verify(state)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired state")
		return
	}

	name := fmt.Sprintf("%s-%s", provider, userID)
	connector, err := s.connectors.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	if err := connector.Connect(r.Context(), code); err != nil {
		s.writeDomainError(w, name, "connect", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected", "connector": name})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (driving.ConnectorService, bool) {
	connector, err := s.connectors.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return nil, false
	}
	return connector, true
}

// writeDomainError maps the shared error taxonomy onto HTTP. Internal
// detail stays in the log; the response carries a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, name, op string, err error) {
	s.logger.Error("request failed", "connector", name, "op", op, "error", err)

	var rateLimited *domain.RateLimitError
	var circuitOpen *domain.CircuitOpenError
	var unsupported *domain.UnsupportedKindError

	switch {
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(time.Until(rateLimited.ResumeAt))))
		writeError(w, http.StatusTooManyRequests, fmt.Sprintf("%s is rate limited", rateLimited.Provider))
	case errors.As(err, &circuitOpen):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(circuitOpen.Remaining)))
		writeError(w, http.StatusServiceUnavailable, "provider temporarily unavailable")
	case errors.Is(err, domain.ErrReauthorizeRequired):
		writeError(w, http.StatusUnauthorized, "reauthorization required")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.As(err, &unsupported), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "unsupported or invalid request")
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync already in progress")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to %s %s", op, name))
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
