package handle

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"mark-engine/api/internal/marking/llm"
)

type updatePromptReq struct {
	Kind string `json:"kind" validate:"oneof=system user"`
	Text string `json:"text" validate:"notblank,max=2097152"`
}

type updatePromptResp struct {
	OK      bool   `json:"ok"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Updated string `json:"updated_at"`
}

// UpdatePrompt writes PROMPT_DIR/mark.<kind>.txt atomically. The next grading
// call picks it up.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.promptDir == "" {
		writeJSON(w, http.StatusConflict, errorBody{Error: "PROMPT_DIR is not configured"})
		return
	}
	defer r.Body.Close()

	var req updatePromptReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return
	}
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	if err := os.MkdirAll(h.promptDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "make dir: " + err.Error()})
		return
	}
	name := llm.MARK + "." + req.Kind
	dstPath := filepath.Join(h.promptDir, name+".txt")

	tmp, err := os.CreateTemp(h.promptDir, name+".*.tmp")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "create temp: " + err.Error()})
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(req.Text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "write temp: " + err.Error()})
		return
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "close temp: " + err.Error()})
		return
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "rename: " + err.Error()})
		return
	}

	h.log.Info("prompt updated", zap.String("path", dstPath), zap.Int("size", len(req.Text)))
	writeJSON(w, http.StatusOK, updatePromptResp{
		OK:      true,
		Path:    dstPath,
		Size:    len(req.Text),
		Updated: time.Now().UTC().Format(time.RFC3339),
	})
}
