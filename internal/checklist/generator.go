package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

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

// Store persists and recalls generated checklists.
type Store interface {
	GetChecklist(workProduct string) (storage.Checklist, error)
	SaveChecklist(workProduct, runID string, payload []byte) error
}

// Knowledge resolves external standard references for a requirement.
// An empty string means nothing was found.
type Knowledge interface {
	Extract(ctx context.Context, req standards.Requirement) (string, error)
}

// Contexts supplies the rendered work-product context block, if any.
type Contexts interface {
	ContextBlock(workProduct string) string
}

// Generator produces one checklist per work product, strictly sequentially.
type Generator struct {
	sender    Sender
	store     Store
	knowledge Knowledge // optional
	contexts  Contexts  // optional
	reuse     bool
	logger    *slog.Logger
}

// NewGenerator creates a Generator. knowledge and contexts may be nil to
// disable enrichment; reuse makes Generate return stored checklists
// instead of regenerating them.
func NewGenerator(sender Sender, store Store, knowledge Knowledge, contexts Contexts, reuse bool) *Generator {
	return &Generator{
		sender:    sender,
		store:     store,
		knowledge: knowledge,
		contexts:  contexts,
		reuse:     reuse,
		logger:    slog.Default(),
	}
}

// GenerateAll produces checklists for every work product in reqs. A work
// product whose generation fails terminally is logged and skipped; it is
// simply missing from the result, never replaced with a partial checklist.
func (g *Generator) GenerateAll(ctx context.Context, reqs []standards.Requirement) ([]*Checklist, error) {
	runID := uuid.NewString()
	var out []*Checklist
	for _, wp := range standards.WorkProducts(reqs) {
		cl, err := g.Generate(ctx, wp, standards.ForWorkProduct(reqs, wp), runID)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			g.logger.Error("checklist generation failed, skipping work product",
				"work_product", wp, "error", err)
			continue
		}
		out = append(out, cl)
	}
	return out, nil
}

// Generate produces (or recalls) the checklist for a single work product.
func (g *Generator) Generate(ctx context.Context, workProduct string, reqs []standards.Requirement, runID string) (*Checklist, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no requirements for work product %q", workProduct)
	}

	if g.reuse {
		if stored, err := g.store.GetChecklist(workProduct); err == nil {
			var cl Checklist
			if err := json.Unmarshal(stored.Payload, &cl); err == nil {
				g.logger.Info("checklist already exists, reusing", "work_product", workProduct)
				return &cl, nil
			}
			g.logger.Warn("stored checklist unreadable, regenerating", "work_product", workProduct)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("loading stored checklist: %w", err)
		}
	}

	g.logger.Info("generating checklist", "work_product", workProduct, "requirements", len(reqs))

	content := make([]RequirementContent, 0, len(reqs))
	for _, req := range reqs {
		c := RequirementContent{Requirement: req}
		if g.knowledge != nil {
			know, err := g.knowledge.Extract(ctx, req)
			if err != nil {
				// Enrichment failures degrade to the bare requirement.
				g.logger.Warn("knowledge extraction failed", "id", req.ID, "error", err)
			} else {
				c.Knowledge = know
			}
		}
		content = append(content, c)
	}

	var contextBlock string
	if g.contexts != nil {
		contextBlock = g.contexts.ContextBlock(workProduct)
	}

	prompt := BuildPrompt(workProduct, content, contextBlock)
	res, err := g.sender.Send(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, Schema())
	if err != nil {
		return nil, fmt.Errorf("generating checklist for %q: %w", workProduct, err)
	}

	cl := res.Value.(*Checklist)
	payload, err := json.Marshal(cl)
	if err != nil {
		return nil, fmt.Errorf("marshaling checklist: %w", err)
	}
	if err := g.store.SaveChecklist(workProduct, runID, payload); err != nil {
		return nil, fmt.Errorf("saving checklist for %q: %w", workProduct, err)
	}
	return cl, nil
}
