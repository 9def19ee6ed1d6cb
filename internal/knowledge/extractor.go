package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
)

// Excerpts passed into clause summary prompts are clipped to keep the
// request within model limits.
const excerptLimit = 4000

// Sender dispatches a prompt, optionally schema-constrained.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error)
}

// Extractor resolves the external references of ISO 26262 requirements:
// it identifies referenced tables, clauses and requirement IDs, looks
// them up in the index and returns the retrieved material as text.
type Extractor struct {
	sender Sender
	index  *Index
	logger *slog.Logger
}

func NewExtractor(sender Sender, index *Index) *Extractor {
	return &Extractor{
		sender: sender,
		index:  index,
		logger: slog.Default(),
	}
}

// Extract returns the external knowledge found for a requirement, or ""
// when the requirement references nothing resolvable. ASPICE requirements
// always yield "". Identification steps that fail are logged and skipped;
// the remaining steps still contribute.
func (e *Extractor) Extract(ctx context.Context, req standards.Requirement) (string, error) {
	if req.Standard != standards.StandardISO26262 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(e.tables(ctx, req))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	sb.WriteString(e.clauses(ctx, req))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	sb.WriteString(e.externalIDs(ctx, req))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if sb.Len() == 0 {
		return "", nil
	}
	return "From the requirement, the following information was found:\n" + sb.String(), nil
}

func (e *Extractor) tables(ctx context.Context, req standards.Requirement) string {
	titles := e.index.TitlesFor(req.Part, req.Clause, req.Section)
	res, err := e.send(ctx, BuildIdentifyTablesPrompt(req, titles), TableRefSchema())
	if err != nil {
		e.logger.Warn("table identification failed", "id", req.ID, "error", err)
		return ""
	}
	if res.NoInfo {
		return ""
	}

	var sb strings.Builder
	for _, ref := range res.Value.(*TableRefList).Tables {
		text := e.index.TableText(ref.PartNumber, ref.TableNumber)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "Table %d from the standards %s in part %d was found.\n%s\n",
			ref.TableNumber, ref.StandardName, ref.PartNumber, text)
	}
	return sb.String()
}

func (e *Extractor) clauses(ctx context.Context, req standards.Requirement) string {
	titles := e.index.TitlesFor(req.Part, req.Clause, req.Section)
	res, err := e.send(ctx, BuildIdentifyClausesPrompt(req, titles), ClauseRefSchema())
	if err != nil {
		e.logger.Warn("clause identification failed", "id", req.ID, "error", err)
		return ""
	}
	if res.NoInfo {
		return ""
	}

	var sb strings.Builder
	for _, ref := range res.Value.(*ClauseRefList).Clauses {
		clauseReqs := e.index.ClauseRequirements(ref.PartNumber, ref.ClauseNumber)
		if len(clauseReqs) == 0 {
			continue
		}
		summary, err := e.summarizeClause(ctx, ref, clauseReqs)
		if err != nil {
			e.logger.Warn("clause summary failed", "id", req.ID,
				"clause", ref.ClauseNumber, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "Clause %d from the standards %s in part %d was found.\n"+
			"Clause %d summary and key points:\n%s\n",
			ref.ClauseNumber, ref.StandardName, ref.PartNumber, ref.ClauseNumber, summary)
	}
	return sb.String()
}

func (e *Extractor) externalIDs(ctx context.Context, req standards.Requirement) string {
	titles := e.index.TitlesFor(req.Part, req.Clause, req.Section)
	res, err := e.send(ctx, BuildIdentifyExternalIDsPrompt(req, titles), ExternalIDSchema())
	if err != nil {
		e.logger.Warn("external ID identification failed", "id", req.ID, "error", err)
		return ""
	}
	if res.NoInfo {
		return ""
	}

	var sb strings.Builder
	for _, id := range res.Value.(*ExternalIDList).ExternalIDs {
		matches := e.index.LookupExternalID(id)
		if len(matches) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "External ID %s found.\n", id.Ref())
		for _, m := range matches {
			fmt.Fprintf(&sb, "ID: %s\nDescription: %s\n\n", m.ID, m.Description)
		}
	}
	return sb.String()
}

// summarizeClause asks for a free-text summary of a referenced clause.
func (e *Extractor) summarizeClause(ctx context.Context, ref ClauseRef, reqs []standards.Requirement) (string, error) {
	titles := e.index.TitlesFor(ref.PartNumber, ref.ClauseNumber, 0)
	excerpt := e.index.ExcerptFor(ref.PartNumber)
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}

	res, err := e.sender.Send(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: BuildClauseSummaryPrompt(ref, titles, reqs, excerpt),
	}}, nil)
	if err != nil {
		return "", err
	}
	return res.Raw, nil
}

func (e *Extractor) send(ctx context.Context, prompt string, desc *schema.Descriptor) (prompter.Result, error) {
	return e.sender.Send(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, desc)
}
