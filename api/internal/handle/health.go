package handle

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Engines []string `json:"engines"`
	DB      string   `json:"db,omitempty"`
}

// Healthz (GET /healthz). С хранилищем пингует БД, при ошибке 503.
func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Message: "SANI API running",
		Engines: h.svc.Engines().Available(),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.DB = "not ok: " + err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.DB = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}
