package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
	"github.com/checkaud/checkaud/internal/storage"
)

// Sender dispatches a schema-constrained prompt.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error)
}

// Store persists rubric scores.
type Store interface {
	SaveEvaluation(e storage.Evaluation) error
}

// Levels selects which evaluation levels run.
type Levels struct {
	Question    bool
	Checklist   bool
	Requirement bool
}

// Evaluator scores checklists against the rubric sets. A rubric whose
// scoring fails is logged and skipped; the remaining rubrics still run.
type Evaluator struct {
	sender Sender
	store  Store
	logger *slog.Logger
}

func NewEvaluator(sender Sender, store Store) *Evaluator {
	return &Evaluator{
		sender: sender,
		store:  store,
		logger: slog.Default(),
	}
}

// Evaluate runs the enabled evaluation levels for one checklist and
// returns every score it collected.
func (e *Evaluator) Evaluate(ctx context.Context, cl *checklist.Checklist, reqs []standards.Requirement, levels Levels) ([]storage.Evaluation, error) {
	var out []storage.Evaluation

	if levels.Question {
		evals, err := e.QuestionLevel(ctx, cl, reqs)
		if err != nil {
			return out, err
		}
		out = append(out, evals...)
	}
	if levels.Checklist {
		evals, err := e.ChecklistLevel(ctx, cl)
		if err != nil {
			return out, err
		}
		out = append(out, evals...)
	}
	if levels.Requirement {
		evals, err := e.RequirementLevel(ctx, cl, reqs)
		if err != nil {
			return out, err
		}
		out = append(out, evals...)
	}
	return out, nil
}

// QuestionLevel scores every checklist item's questions against the
// question rubrics.
func (e *Evaluator) QuestionLevel(ctx context.Context, cl *checklist.Checklist, reqs []standards.Requirement) ([]storage.Evaluation, error) {
	var out []storage.Evaluation
	for _, item := range cl.Items {
		traced := tracedRequirements(reqs, item.IDs)
		for _, rubric := range QuestionRubrics {
			prompt := BuildQuestionPrompt(cl.WorkProduct, item, traced, rubric)
			eval, err := e.score(ctx, LevelQuestion, cl.WorkProduct, item.Title, rubric, prompt)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				e.logger.Warn("question evaluation failed, skipping rubric",
					"work_product", cl.WorkProduct, "item", item.Title, "rubric", rubric, "error", err)
				continue
			}
			out = append(out, eval)
		}
	}
	return out, nil
}

// ChecklistLevel scores the checklist as a whole against the checklist
// rubrics.
func (e *Evaluator) ChecklistLevel(ctx context.Context, cl *checklist.Checklist) ([]storage.Evaluation, error) {
	var out []storage.Evaluation
	for _, rubric := range ChecklistRubrics {
		prompt := BuildChecklistPrompt(cl, rubric)
		eval, err := e.score(ctx, LevelChecklist, cl.WorkProduct, cl.WorkProduct, rubric, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			e.logger.Warn("checklist evaluation failed, skipping rubric",
				"work_product", cl.WorkProduct, "rubric", rubric, "error", err)
			continue
		}
		out = append(out, eval)
	}
	return out, nil
}

// RequirementLevel scores each requirement against the checklist items
// tracing to it. Requirements no item traces to still get scored: the
// traceability rubric is what exposes them.
func (e *Evaluator) RequirementLevel(ctx context.Context, cl *checklist.Checklist, reqs []standards.Requirement) ([]storage.Evaluation, error) {
	var out []storage.Evaluation
	for _, req := range reqs {
		items := itemsTracing(cl, req.ID)
		for _, rubric := range RequirementRubrics {
			prompt := BuildRequirementPrompt(req, items, rubric)
			eval, err := e.score(ctx, LevelRequirement, cl.WorkProduct, req.ID, rubric, prompt)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				e.logger.Warn("requirement evaluation failed, skipping rubric",
					"work_product", cl.WorkProduct, "requirement", req.ID, "rubric", rubric, "error", err)
				continue
			}
			out = append(out, eval)
		}
	}
	return out, nil
}

// score runs one rubric prompt and persists the result.
func (e *Evaluator) score(ctx context.Context, level, workProduct, subject, rubric, prompt string) (storage.Evaluation, error) {
	res, err := e.sender.Send(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, ResultSchema())
	if err != nil {
		return storage.Evaluation{}, err
	}
	result := res.Value.(*Result)

	eval := storage.Evaluation{
		ID:          uuid.NewString(),
		Level:       level,
		WorkProduct: workProduct,
		Subject:     subject,
		Rubric:      rubric,
		Score:       result.Score,
		Notes:       result.Notes,
	}
	if err := e.store.SaveEvaluation(eval); err != nil {
		return storage.Evaluation{}, fmt.Errorf("saving evaluation: %w", err)
	}
	return eval, nil
}

func tracedRequirements(reqs []standards.Requirement, ids []string) []standards.Requirement {
	var out []standards.Requirement
	for _, r := range reqs {
		if slices.Contains(ids, r.ID) {
			out = append(out, r)
		}
	}
	return out
}

func itemsTracing(cl *checklist.Checklist, id string) []checklist.Item {
	var out []checklist.Item
	for _, item := range cl.Items {
		if slices.Contains(item.IDs, id) {
			out = append(out, item)
		}
	}
	return out
}
