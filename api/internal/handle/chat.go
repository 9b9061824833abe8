package handle

import (
	"context"
	"net/http"
	"strings"

	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/service"
)

type ChatRequest struct {
	LLMName   string          `json:"llm_name"`
	SessionID string          `json:"session_id"`
	History   []sani.ChatTurn `json:"history"`
	Message   string          `json:"message"`
}

func (req *ChatRequest) validate() string {
	if strings.TrimSpace(req.Message) == "" {
		return "message is required"
	}
	for _, t := range req.History {
		if !t.Valid() {
			return "history role must be 'user' or 'assistant'"
		}
	}
	return ""
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat (POST /api/chat): ответ на естественном языке с учётом истории.
func (h *Handle) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodePOST(w, r, &req, maxBody) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := h.requestContext(r, req.SessionID)
	defer cancel()

	out, err := h.svc.Chat(ctx, req.LLMName, req.History, req.Message)
	if err != nil {
		h.fail(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: out.Reply})
}

// Turn (POST /api/turn): ответ и интент за один запрос.
func (h *Handle) Turn(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodePOST(w, r, &req, maxBody) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := h.requestContext(r, req.SessionID)
	defer cancel()

	out, err := h.svc.Turn(ctx, req.LLMName, req.History, req.Message)
	if err != nil {
		h.fail(w, r, "turn", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) requestContext(r *http.Request, sessionID string) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if sid := strings.TrimSpace(sessionID); sid != "" {
		ctx = service.WithConversation(ctx, "http", sid)
	}
	return context.WithTimeout(ctx, h.timeout)
}
