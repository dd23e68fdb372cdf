package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mark-engine/api/internal/marking"
	"mark-engine/api/internal/marking/types"
	"mark-engine/api/internal/store"
)

const (
	maxBodyBytes    = 8 << 20
	defaultDeadline = 180 * time.Second
)

// Grader is the marking capability the handlers need.
type Grader interface {
	Grade(ctx context.Context, mc types.MarkingContext) (types.MarkingResult, error)
	GradeAll(ctx context.Context, in []types.MarkingContext) []marking.BatchItem
}

type Handle struct {
	engine    Grader
	repo      store.AttemptRepo
	validate  *validator.Validate
	log       *zap.Logger
	promptDir string
}

func New(engine Grader, repo store.AttemptRepo, log *zap.Logger, promptDir string) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		engine:    engine,
		repo:      repo,
		validate:  newValidator(),
		log:       log,
		promptDir: promptDir,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Register mounts every route on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/mark", h.Mark)
	mux.HandleFunc("/v1/mark/batch", h.MarkBatch)
	mux.HandleFunc("/v1/attempts", h.Attempts)
	mux.HandleFunc("/v1/prompts", h.UpdatePrompt)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps engine and validation errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, types.ErrUnsupportedQuestionType),
		errors.Is(err, types.ErrMalformedContext):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorPayload(err error) errorBody {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
		}
		return errorBody{Error: "validation failed", Fields: fields}
	}
	return errorBody{Error: err.Error()}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorPayload(err))
}

// requestContext applies X-Request-Timeout (seconds) or ?timeoutSec=, default 180s.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := defaultDeadline
	ts := r.Header.Get("X-Request-Timeout")
	if ts == "" {
		ts = r.URL.Query().Get("timeoutSec")
	}
	if v, _ := strconv.Atoi(ts); v > 0 {
		deadline = time.Duration(v) * time.Second
	}
	return context.WithTimeout(r.Context(), deadline)
}
