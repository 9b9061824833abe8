package handle

import (
	"net/http"
	"strings"
)

type ParseIntentRequest struct {
	LLMName   string `json:"llm_name"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Page      string `json:"page,omitempty"` // страница клиента; пока не влияет на разбор
}

// ParseIntent (POST /api/parse-intent): канонический интент и слоты.
func (h *Handle) ParseIntent(w http.ResponseWriter, r *http.Request) {
	var req ParseIntentRequest
	if !decodePOST(w, r, &req, maxBody) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := h.requestContext(r, req.SessionID)
	defer cancel()

	out, err := h.svc.ParseIntent(ctx, req.LLMName, req.Message)
	if err != nil {
		h.fail(w, r, "parse-intent", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
