package wpcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
	"github.com/checkaud/checkaud/internal/storage"
)

// Batch sizes for filtering glossary material through the model.
const (
	termBatchSize           = 5
	disambiguationBatchSize = 5
	abbreviationBatchSize   = 10
)

// Sender dispatches a prompt, optionally schema-constrained.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error)
}

// Store persists and recalls work-product contexts.
type Store interface {
	GetContext(workProduct string) (storage.Context, error)
	SaveContext(workProduct string, payload []byte) error
}

// Generator builds the context for each work product: a described purpose,
// content, inputs and uses, plus the glossary concepts filtered down to
// what the work product needs.
type Generator struct {
	sender   Sender
	store    Store
	glossary *Glossary
	reuse    bool
	logger   *slog.Logger
}

// NewGenerator creates a Generator. glossary may be nil, in which case
// contexts carry an empty concept set; reuse makes Generate return stored
// contexts instead of regenerating them.
func NewGenerator(sender Sender, store Store, glossary *Glossary, reuse bool) *Generator {
	return &Generator{
		sender:   sender,
		store:    store,
		glossary: glossary,
		reuse:    reuse,
		logger:   slog.Default(),
	}
}

// GenerateAll builds contexts for every work product in reqs. A work
// product whose context generation fails is logged and skipped.
func (g *Generator) GenerateAll(ctx context.Context, reqs []standards.Requirement) (map[string]*WorkProductContext, error) {
	out := make(map[string]*WorkProductContext)
	for _, wp := range standards.WorkProducts(reqs) {
		c, err := g.Generate(ctx, wp, standards.ForWorkProduct(reqs, wp))
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			g.logger.Error("context generation failed, skipping work product",
				"work_product", wp, "error", err)
			continue
		}
		out[wp] = c
	}
	return out, nil
}

// Generate builds (or recalls) the context for a single work product.
func (g *Generator) Generate(ctx context.Context, workProduct string, reqs []standards.Requirement) (*WorkProductContext, error) {
	if g.reuse {
		if stored, err := g.store.GetContext(workProduct); err == nil {
			var c WorkProductContext
			if err := json.Unmarshal(stored.Payload, &c); err == nil {
				g.logger.Info("context already exists, reusing", "work_product", workProduct)
				return &c, nil
			}
			g.logger.Warn("stored context unreadable, regenerating", "work_product", workProduct)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("loading stored context: %w", err)
		}
	}

	g.logger.Info("generating context", "work_product", workProduct, "requirements", len(reqs))

	desc, err := g.describe(ctx, workProduct, reqs)
	if err != nil {
		return nil, err
	}
	concepts := g.filterConcepts(ctx, workProduct)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c := &WorkProductContext{
		WorkProduct: workProduct,
		Description: *desc,
		Concepts:    *concepts,
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling context: %w", err)
	}
	if err := g.store.SaveContext(workProduct, payload); err != nil {
		return nil, fmt.Errorf("saving context for %q: %w", workProduct, err)
	}
	return c, nil
}

// describe produces the narrative description of a work product. The
// purpose is schema-constrained; content, input and uses are free text.
func (g *Generator) describe(ctx context.Context, workProduct string, reqs []standards.Requirement) (*Description, error) {
	res, err := g.send(ctx, BuildPurposePrompt(workProduct), PurposeSchema())
	if err != nil {
		return nil, fmt.Errorf("generating purpose for %q: %w", workProduct, err)
	}
	purpose := res.Value.(*Purpose)

	content, err := g.sendRaw(ctx, BuildContentPrompt(workProduct, reqs))
	if err != nil {
		return nil, fmt.Errorf("generating content description for %q: %w", workProduct, err)
	}
	input, err := g.sendRaw(ctx, BuildInputPrompt(workProduct, reqs))
	if err != nil {
		return nil, fmt.Errorf("generating input description for %q: %w", workProduct, err)
	}
	uses, err := g.sendRaw(ctx, BuildUsesPrompt(workProduct, reqs))
	if err != nil {
		return nil, fmt.Errorf("generating uses description for %q: %w", workProduct, err)
	}

	return &Description{
		Purpose: *purpose,
		Content: content,
		Input:   input,
		Uses:    uses,
	}, nil
}

// filterConcepts narrows the glossary down to what the work product needs.
// A failed batch is logged and dropped; the remaining batches still apply.
func (g *Generator) filterConcepts(ctx context.Context, workProduct string) *Concepts {
	concepts := &Concepts{
		Terminology:    TermList{Terms: []Term{}},
		Disambiguation: Disambiguation{Entries: []DisambiguationEntry{}},
		Abbreviations:  AbbreviationList{Abbreviations: []Abbreviation{}},
	}
	if g.glossary == nil {
		return concepts
	}

	for batch := range batches(g.glossary.Terms, termBatchSize) {
		res, err := g.send(ctx, BuildTermFilterPrompt(workProduct, batch), TermListSchema())
		if err != nil {
			g.logger.Warn("terminology filtering failed for batch", "work_product", workProduct, "error", err)
			continue
		}
		concepts.Terminology.Terms = append(concepts.Terminology.Terms, res.Value.(*TermList).Terms...)
	}

	for batch := range batches(g.glossary.Concepts, disambiguationBatchSize) {
		res, err := g.send(ctx, BuildDisambiguationFilterPrompt(workProduct, batch), DisambiguationSchema())
		if err != nil {
			g.logger.Warn("disambiguation filtering failed for batch", "work_product", workProduct, "error", err)
			continue
		}
		concepts.Disambiguation.Entries = append(concepts.Disambiguation.Entries, res.Value.(*Disambiguation).Entries...)
	}

	for batch := range batches(g.glossary.Abbreviations, abbreviationBatchSize) {
		res, err := g.send(ctx, BuildAbbreviationFilterPrompt(workProduct, batch), AbbreviationListSchema())
		if err != nil {
			g.logger.Warn("abbreviation filtering failed for batch", "work_product", workProduct, "error", err)
			continue
		}
		concepts.Abbreviations.Abbreviations = append(concepts.Abbreviations.Abbreviations, res.Value.(*AbbreviationList).Abbreviations...)
	}

	return concepts
}

func (g *Generator) send(ctx context.Context, prompt string, desc *schema.Descriptor) (prompter.Result, error) {
	return g.sender.Send(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, desc)
}

func (g *Generator) sendRaw(ctx context.Context, prompt string) (string, error) {
	res, err := g.sender.Send(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return res.Raw, nil
}

// batches yields s in chunks of size.
func batches[T any](s []T, size int) func(yield func([]T) bool) {
	return func(yield func([]T) bool) {
		for i := 0; i < len(s); i += size {
			end := min(i+size, len(s))
			if !yield(s[i:end]) {
				return
			}
		}
	}
}

// Provider serves stored contexts to checklist generation. A missing or
// unreadable context renders as an empty block.
type Provider struct {
	store  Store
	logger *slog.Logger
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store, logger: slog.Default()}
}

// ContextBlock returns the rendered context for a work product, or "" when
// none is stored.
func (p *Provider) ContextBlock(workProduct string) string {
	stored, err := p.store.GetContext(workProduct)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("loading context failed", "work_product", workProduct, "error", err)
		}
		return ""
	}
	var c WorkProductContext
	if err := json.Unmarshal(stored.Payload, &c); err != nil {
		p.logger.Warn("stored context unreadable", "work_product", workProduct, "error", err)
		return ""
	}
	return Render(&c)
}
