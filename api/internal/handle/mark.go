package handle

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mark-engine/api/internal/marking/types"
)

// --- MARK -------------------------------------------------------------------

func (h *Handle) Mark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var mc types.MarkingContext
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&mc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return
	}
	if err := h.validate.Struct(mc); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.engine.Grade(ctx, mc)
	if err != nil {
		h.log.Warn("mark failed", zap.String("question_id", mc.QuestionLegacyID), zap.Error(err))
		writeError(w, err)
		return
	}
	attempt, err := h.repo.Append(ctx, res)
	if err != nil {
		h.log.Error("attempt append failed", zap.String("question_id", mc.QuestionLegacyID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "store error: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// --- MARK BATCH -------------------------------------------------------------

type batchReq struct {
	Items []types.MarkingContext `json:"items" validate:"required,min=1,max=50,dive"`
}

type batchItem struct {
	Attempt *types.Attempt `json:"attempt,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type batchResp struct {
	Items []batchItem `json:"items"`
}

// MarkBatch grades sub-questions of one group concurrently. Each item succeeds
// or fails on its own; the response is index-aligned with the request.
func (h *Handle) MarkBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req batchReq
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	graded := h.engine.GradeAll(ctx, req.Items)
	out := batchResp{Items: make([]batchItem, len(graded))}
	for i, g := range graded {
		if g.Err != nil {
			out.Items[i].Error = g.Err.Error()
			continue
		}
		a, err := h.repo.Append(ctx, g.Result)
		if err != nil {
			h.log.Error("attempt append failed", zap.String("question_id", g.Result.QuestionLegacyID), zap.Error(err))
			out.Items[i].Error = "store error: " + err.Error()
			continue
		}
		out.Items[i].Attempt = &a
	}
	writeJSON(w, http.StatusOK, out)
}

// --- ATTEMPTS ---------------------------------------------------------------

func (h *Handle) Attempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	qid := strings.TrimSpace(r.URL.Query().Get("question"))
	if qid == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "question is required"})
		return
	}
	list, err := h.repo.List(r.Context(), qid)
	if err != nil {
		h.log.Error("attempt list failed", zap.String("question_id", qid), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "store error: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": list})
}
