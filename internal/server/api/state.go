package api

import "net/http"

// StateProvider returns the live application state as a JSON-encodable value.
type StateProvider interface {
	State() any
}

// StateHandler serves GET /api/state.
type StateHandler struct {
	provider StateProvider
}

// NewStateHandler creates a StateHandler reading from p.
func NewStateHandler(p StateProvider) *StateHandler {
	return &StateHandler{provider: p}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "State not available")
		return
	}

	writeJSON(w, http.StatusOK, h.provider.State())
}
