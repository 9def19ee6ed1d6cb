// Package api exposes checklist generation and evaluation over HTTP and
// MCP. Both surfaces share the same pipeline; the HTTP API is protected by
// a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/pipeline"
	"github.com/checkaud/checkaud/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Runner is the slice of the pipeline the API drives.
type Runner interface {
	GenerateChecklists(ctx context.Context, workProducts []string) (*pipeline.RunResult, error)
	Evaluate(ctx context.Context, workProducts []string, levels evaluation.Levels) ([]storage.Evaluation, error)
	StoredChecklist(workProduct string) (*checklist.Checklist, error)
}

// Lister reads stored artifacts for the listing endpoints.
type Lister interface {
	ListChecklists() ([]storage.Checklist, error)
	ListEvaluations(level string) ([]storage.Evaluation, error)
}

type AppDeps struct {
	Runner Runner
	Store  Lister
	Token  string
	// Levels are the default evaluation levels when a request names none.
	Levels evaluation.Levels
}

// NewAppHandler returns the HTTP API. The health endpoint is open;
// everything else requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/generate", handleGenerate(deps))
		r.Post("/evaluate", handleEvaluate(deps))
		r.Get("/checklists", handleListChecklists(deps))
		r.Get("/checklists/{workProduct}", handleGetChecklist(deps))
		r.Get("/evaluations", handleListEvaluations(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type GenerateRequest struct {
	// WorkProducts restricts the run; empty means every work product in
	// the dataset.
	WorkProducts []string `json:"work_products"`
}

type GenerateResponse struct {
	RunID     string   `json:"run_id"`
	Generated []string `json:"generated"`
	Skipped   []string `json:"skipped,omitempty"`
}

func handleGenerate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		result, err := deps.Runner.GenerateChecklists(r.Context(), req.WorkProducts)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "generation failed: %v", err)
			return
		}

		resp := GenerateResponse{RunID: result.RunID, Skipped: result.Skipped}
		for _, cl := range result.Checklists {
			resp.Generated = append(resp.Generated, cl.WorkProduct)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type EvaluateRequest struct {
	WorkProducts []string `json:"work_products"`
	// Levels selects the evaluation levels; all false falls back to the
	// server defaults.
	Levels struct {
		Question    bool `json:"question"`
		Checklist   bool `json:"checklist"`
		Requirement bool `json:"requirement"`
	} `json:"levels"`
}

func handleEvaluate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		levels := evaluation.Levels{
			Question:    req.Levels.Question,
			Checklist:   req.Levels.Checklist,
			Requirement: req.Levels.Requirement,
		}
		if !levels.Question && !levels.Checklist && !levels.Requirement {
			levels = deps.Levels
		}

		evals, err := deps.Runner.Evaluate(r.Context(), req.WorkProducts, levels)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "evaluation failed: %v", err)
			return
		}
		if evals == nil {
			evals = []storage.Evaluation{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"evaluations": evaluationViews(evals)})
	}
}

// ChecklistSummary is one row of the checklist listing.
type ChecklistSummary struct {
	WorkProduct string `json:"work_product"`
	RunID       string `json:"run_id"`
	CreatedAt   string `json:"created_at"`
}

func handleListChecklists(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, err := deps.Store.ListChecklists()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list checklists: %v", err)
			return
		}

		summaries := make([]ChecklistSummary, len(stored))
		for i, cl := range stored {
			summaries[i] = ChecklistSummary{
				WorkProduct: cl.WorkProduct,
				RunID:       cl.RunID,
				CreatedAt:   cl.CreatedAt.Format(time.RFC3339),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handleGetChecklist(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wp := chi.URLParam(r, "workProduct")

		cl, err := deps.Runner.StoredChecklist(wp)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no checklist for work product %q", wp)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load checklist: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cl)
	}
}

// EvaluationView is one rubric score in API responses.
type EvaluationView struct {
	ID          string `json:"id"`
	Level       string `json:"level"`
	WorkProduct string `json:"work_product"`
	Subject     string `json:"subject"`
	Rubric      string `json:"rubric"`
	Score       int    `json:"score"`
	Notes       string `json:"notes"`
}

func evaluationViews(evals []storage.Evaluation) []EvaluationView {
	views := make([]EvaluationView, len(evals))
	for i, e := range evals {
		views[i] = EvaluationView{
			ID:          e.ID,
			Level:       e.Level,
			WorkProduct: e.WorkProduct,
			Subject:     e.Subject,
			Rubric:      e.Rubric,
			Score:       e.Score,
			Notes:       e.Notes,
		}
	}
	return views
}

func handleListEvaluations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level := r.URL.Query().Get("level")
		switch level {
		case "", evaluation.LevelQuestion, evaluation.LevelChecklist, evaluation.LevelRequirement:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown level %q", level)
			return
		}

		evals, err := deps.Store.ListEvaluations(level)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list evaluations: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(evaluationViews(evals))
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
