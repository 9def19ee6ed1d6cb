// Package pipeline wires the generation stages end to end: requirement
// loading, work-product context generation, requirement filtering, topic
// grouping, standard-knowledge extraction, checklist generation,
// evaluation and report writing. Every batch is bracketed by a run record
// so interrupted runs stay visible.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/config"
	"github.com/checkaud/checkaud/internal/content"
	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/knowledge"
	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/report"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
	"github.com/checkaud/checkaud/internal/storage"
	"github.com/checkaud/checkaud/internal/wpcontext"
)

// requirementsFile is the combined ISO 26262 / Automotive SPICE dataset
// inside the dataset directory.
const requirementsFile = "requirements.csv"

// Review sheet names inside the report directory.
const (
	questionSheet    = "checklist_review.csv"
	requirementSheet = "requirement_review.csv"
	evaluationSheet  = "evaluations.csv"
)

// Sender dispatches a schema-constrained prompt.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error)
}

// Store is the slice of the artifact store the pipeline needs.
type Store interface {
	checklist.Store
	wpcontext.Store
	evaluation.Store
	StartRun(id string) error
	FinishRun(id, status, errMsg string) error
}

// Pipeline runs the generation and evaluation stages over the loaded
// requirement dataset.
type Pipeline struct {
	cfg    config.Config
	sender Sender
	store  Store
	reqs   []standards.Requirement
	logger *slog.Logger
}

// New loads the requirement dataset from the configured dataset directory
// and returns a ready pipeline.
func New(cfg config.Config, sender Sender, store Store) (*Pipeline, error) {
	reqs, err := standards.Load(filepath.Join(cfg.Storage.DatasetDir, requirementsFile))
	if err != nil {
		return nil, fmt.Errorf("loading requirements: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		sender: sender,
		store:  store,
		reqs:   reqs,
		logger: slog.Default(),
	}, nil
}

// Requirements returns the loaded dataset.
func (p *Pipeline) Requirements() []standards.Requirement {
	return p.reqs
}

// RunResult is the outcome of one generation run.
type RunResult struct {
	RunID      string
	Checklists []*checklist.Checklist
	// Skipped lists work products whose generation failed terminally.
	Skipped []string
}

// GenerateChecklists runs the full generation pipeline for the named work
// products, or for every work product in the dataset when workProducts is
// empty. The run record is marked failed only when the batch itself
// aborts; individual work-product failures are skipped and reported in
// the result.
func (p *Pipeline) GenerateChecklists(ctx context.Context, workProducts []string) (*RunResult, error) {
	reqs, err := p.restrict(workProducts)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := p.store.StartRun(runID); err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	result, err := p.generate(ctx, reqs, runID)
	if err != nil {
		if ferr := p.store.FinishRun(runID, storage.RunFailed, err.Error()); ferr != nil {
			p.logger.Error("recording failed run", "run_id", runID, "error", ferr)
		}
		return nil, err
	}
	if err := p.store.FinishRun(runID, storage.RunCompleted, ""); err != nil {
		return nil, fmt.Errorf("finishing run: %w", err)
	}
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, reqs []standards.Requirement, runID string) (*RunResult, error) {
	extractor := p.extractor(reqs)

	if p.cfg.Pipeline.AddContext {
		if _, err := p.buildContexts(ctx, reqs); err != nil {
			return nil, err
		}
	}

	if p.cfg.Pipeline.FilterRequirements {
		seg := content.NewSegmenter(p.sender, extractorOrNil(extractor))
		filtered, err := seg.FilterAll(ctx, reqs)
		if err != nil {
			return nil, fmt.Errorf("filtering requirements: %w", err)
		}
		reqs = filtered
	}

	contexts := p.contextSource(ctx, reqs)

	gen := checklist.NewGenerator(p.sender, p.store, extractorOrNil(extractor), contexts, !p.cfg.Pipeline.NewChecklists)

	result := &RunResult{RunID: runID}
	for _, wp := range standards.WorkProducts(reqs) {
		cl, err := gen.Generate(ctx, wp, standards.ForWorkProduct(reqs, wp), runID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Error("checklist generation failed, skipping work product",
				"work_product", wp, "error", err)
			result.Skipped = append(result.Skipped, wp)
			continue
		}
		result.Checklists = append(result.Checklists, cl)
	}

	if err := p.writeReports(result.Checklists, reqs); err != nil {
		return nil, err
	}
	return result, nil
}

// extractor builds the standard-knowledge extractor, or returns nil when
// the stage is disabled or the local standard index cannot be loaded.
func (p *Pipeline) extractor(reqs []standards.Requirement) *knowledge.Extractor {
	if !p.cfg.Pipeline.ExtractISOKnowledge {
		return nil
	}
	idx, err := knowledge.LoadIndex(p.cfg.Storage.DatasetDir, reqs)
	if err != nil {
		p.logger.Warn("standard index unavailable, skipping knowledge extraction", "error", err)
		return nil
	}
	return knowledge.NewExtractor(p.sender, idx)
}

// GenerateContexts builds (or reuses) work-product contexts without
// generating checklists.
func (p *Pipeline) GenerateContexts(ctx context.Context, workProducts []string) (map[string]*wpcontext.WorkProductContext, error) {
	reqs, err := p.restrict(workProducts)
	if err != nil {
		return nil, err
	}
	return p.buildContexts(ctx, reqs)
}

// buildContexts generates (or reuses) the work-product contexts and writes
// their markdown renditions.
func (p *Pipeline) buildContexts(ctx context.Context, reqs []standards.Requirement) (map[string]*wpcontext.WorkProductContext, error) {
	glossary, err := wpcontext.LoadGlossary(p.cfg.Storage.DatasetDir)
	if err != nil {
		p.logger.Warn("glossary unavailable, contexts carry no concepts", "error", err)
		glossary = nil
	}

	gen := wpcontext.NewGenerator(p.sender, p.store, glossary, !p.cfg.Pipeline.NewContext)
	contexts, err := gen.GenerateAll(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("generating contexts: %w", err)
	}
	for _, c := range contexts {
		if _, err := report.WriteContextMarkdown(p.cfg.Storage.ReportDir, c); err != nil {
			return nil, err
		}
	}
	return contexts, nil
}

// contextSource builds the context block source for checklist prompts:
// stored contexts when enabled, plus topic groupings when enabled. Returns
// nil when neither stage is on.
func (p *Pipeline) contextSource(ctx context.Context, reqs []standards.Requirement) checklist.Contexts {
	var provider *wpcontext.Provider
	if p.cfg.Pipeline.AddContext {
		provider = wpcontext.NewProvider(p.store)
	}

	var topics map[string]string
	if p.cfg.Pipeline.GroupTopics {
		topics = p.groupTopics(ctx, reqs)
	}

	if provider == nil && topics == nil {
		return nil
	}
	return &contextBlocks{provider: provider, topics: topics}
}

// groupTopics asks the model for a topic grouping per work product. A
// grouping that fails is logged and left out; the checklist prompt simply
// carries no topics for that work product.
func (p *Pipeline) groupTopics(ctx context.Context, reqs []standards.Requirement) map[string]string {
	seg := content.NewSegmenter(p.sender, nil)
	topics := make(map[string]string)
	for _, wp := range standards.WorkProducts(reqs) {
		list, err := seg.GroupTopics(ctx, standards.ForWorkProduct(reqs, wp))
		if err != nil {
			p.logger.Warn("topic grouping failed", "work_product", wp, "error", err)
			continue
		}
		topics[wp] = content.RenderTopics(list)
	}
	return topics
}

// contextBlocks joins the stored context rendition and the topic grouping
// into one prompt block.
type contextBlocks struct {
	provider *wpcontext.Provider
	topics   map[string]string
}

func (c *contextBlocks) ContextBlock(workProduct string) string {
	var block string
	if c.provider != nil {
		block = c.provider.ContextBlock(workProduct)
	}
	if t := c.topics[workProduct]; t != "" {
		if block != "" {
			block += "\n\n"
		}
		block += t
	}
	return block
}

func (p *Pipeline) writeReports(checklists []*checklist.Checklist, reqs []standards.Requirement) error {
	for _, cl := range checklists {
		if _, err := report.WriteChecklistMarkdown(p.cfg.Storage.ReportDir, cl); err != nil {
			return err
		}
	}
	if err := report.WriteQuestionSheet(filepath.Join(p.cfg.Storage.ReportDir, questionSheet), checklists); err != nil {
		return err
	}
	if err := report.WriteRequirementSheet(filepath.Join(p.cfg.Storage.ReportDir, requirementSheet), checklists, reqs); err != nil {
		return err
	}
	return nil
}

// Evaluate scores the stored checklists for the named work products (all
// stored checklists when workProducts is empty) at the enabled levels and
// writes the score sheet. Work products without a stored checklist are
// skipped with a warning.
func (p *Pipeline) Evaluate(ctx context.Context, workProducts []string, levels evaluation.Levels) ([]storage.Evaluation, error) {
	reqs, err := p.restrict(workProducts)
	if err != nil {
		return nil, err
	}

	eval := evaluation.NewEvaluator(p.sender, p.store)

	var out []storage.Evaluation
	for _, wp := range standards.WorkProducts(reqs) {
		cl, err := p.StoredChecklist(wp)
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("no stored checklist, skipping evaluation", "work_product", wp)
			continue
		}
		if err != nil {
			return nil, err
		}
		evals, err := eval.Evaluate(ctx, cl, standards.ForWorkProduct(reqs, wp), levels)
		if err != nil {
			return nil, err
		}
		out = append(out, evals...)
	}

	if err := report.WriteEvaluationSheet(filepath.Join(p.cfg.Storage.ReportDir, evaluationSheet), out); err != nil {
		return nil, err
	}
	return out, nil
}

// StoredChecklist loads and decodes one stored checklist.
func (p *Pipeline) StoredChecklist(workProduct string) (*checklist.Checklist, error) {
	stored, err := p.store.GetChecklist(workProduct)
	if err != nil {
		return nil, err
	}
	var cl checklist.Checklist
	if err := json.Unmarshal(stored.Payload, &cl); err != nil {
		return nil, fmt.Errorf("decoding stored checklist for %q: %w", workProduct, err)
	}
	return &cl, nil
}

// restrict narrows the dataset to the named work products. Every name must
// exist in the dataset.
func (p *Pipeline) restrict(workProducts []string) ([]standards.Requirement, error) {
	if len(workProducts) == 0 {
		return p.reqs, nil
	}
	known := standards.WorkProducts(p.reqs)
	for _, wp := range workProducts {
		if !slices.Contains(known, wp) {
			return nil, fmt.Errorf("unknown work product %q", wp)
		}
	}
	return standards.Restrict(p.reqs, workProducts), nil
}

// extractorOrNil keeps a nil *Extractor from becoming a non-nil interface.
func extractorOrNil(e *knowledge.Extractor) checklist.Knowledge {
	if e == nil {
		return nil
	}
	return e
}
