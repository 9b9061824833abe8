package handle

import (
	"net/http"
	"strings"
)

type SaniChatRequest struct {
	LLMName string `json:"llm_name"`
	Message string `json:"message"`
}

// SaniChat (POST /sani/chat): теговый протокол, в ответе StructuredReply.
func (h *Handle) SaniChat(w http.ResponseWriter, r *http.Request) {
	var req SaniChatRequest
	if !decodePOST(w, r, &req, maxBody) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := h.requestContext(r, "")
	defer cancel()

	out, err := h.svc.Ask(ctx, req.LLMName, req.Message)
	if err != nil {
		h.fail(w, r, "sani chat", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
