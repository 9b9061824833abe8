package handle

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"sani-bot/api/internal/prompt"
	"sani-bot/api/internal/util"
)

var allowedNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const maxPromptSize = 2 << 20 // 2 MiB

type UpdatePromptRequest struct {
	Name string `json:"name"` // assistant | chat | nlu, без расширения
	Text string `json:"text"`
}

type UpdatePromptResponse struct {
	OK      bool   `json:"ok"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Updated string `json:"updated_at"`
}

func (req *UpdatePromptRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	// Если прислали ".txt", срезаем, чтобы не было ".txt.txt".
	if strings.HasSuffix(strings.ToLower(req.Name), ".txt") {
		req.Name = req.Name[:len(req.Name)-len(".txt")]
	}
	if req.Name == "" {
		return errors.New("name is required")
	}
	if !allowedNameRe.MatchString(req.Name) {
		return errors.New("name must match [a-zA-Z0-9_-]+")
	}
	req.Name = strings.ToLower(req.Name)
	if !prompt.Valid(req.Name) {
		return fmt.Errorf("unknown prompt %q; use one of %v", req.Name, prompt.Names)
	}
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("text is required")
	}
	if len(req.Text) > maxPromptSize {
		return errors.New("text too large (max 2 MiB)")
	}
	return nil
}

// UpdatePrompt (POST /api/prompt) сохраняет <PROMPT_DIR>/<name>.txt
// атомарно (temp + rename) и перечитывает набор промптов в сервисе.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodePOST(w, r, &req, 2*maxPromptSize) { // 4 MiB на весь JSON
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	baseDir := h.promptDir
	if baseDir == "" {
		baseDir = util.PromptDir()
	}
	dstPath, err := writeAtomic(baseDir, req.Name+".txt", req.Text)
	if err != nil {
		h.logger(r.Context()).Error("prompt write failed", zap.String("name", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	set, err := prompt.Load(baseDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reload prompts: "+err.Error())
		return
	}
	h.svc.SetPrompts(set)
	h.logger(r.Context()).Info("prompt updated", zap.String("name", req.Name), zap.Int("size", len(req.Text)))

	writeJSON(w, http.StatusOK, UpdatePromptResponse{
		OK:      true,
		Name:    req.Name,
		Path:    dstPath,
		Size:    len(req.Text),
		Updated: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeAtomic: temp-файл в том же каталоге, затем rename.
func writeAtomic(dir, filename, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("make dir: %w", err)
	}
	dstPath := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename: %w", err)
	}
	return dstPath, nil
}
