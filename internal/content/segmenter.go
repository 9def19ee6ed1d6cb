package content

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

// Sender dispatches a schema-constrained prompt.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error)
}

// Knowledge resolves external standard references for a requirement.
type Knowledge interface {
	Extract(ctx context.Context, req standards.Requirement) (string, error)
}

// Segmenter filters requirement descriptions and groups them by topic.
type Segmenter struct {
	sender    Sender
	knowledge Knowledge // optional
	logger    *slog.Logger
}

// NewSegmenter creates a Segmenter. knowledge may be nil to skip external
// reference retrieval during filtering.
func NewSegmenter(sender Sender, knowledge Knowledge) *Segmenter {
	return &Segmenter{
		sender:    sender,
		knowledge: knowledge,
		logger:    slog.Default(),
	}
}

// Filter rewrites a requirement's description to its essential, reference-
// free compliance content. The returned requirement is a copy with the
// description replaced.
func (s *Segmenter) Filter(ctx context.Context, req standards.Requirement) (standards.Requirement, error) {
	var external string
	if s.knowledge != nil {
		know, err := s.knowledge.Extract(ctx, req)
		if err != nil {
			s.logger.Warn("knowledge extraction failed during filtering", "id", req.ID, "error", err)
		} else {
			external = know
		}
	}

	res, err := s.sender.Send(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: BuildFilterPrompt(req, external),
	}}, DescriptionSchema())
	if err != nil {
		return req, fmt.Errorf("filtering requirement %s: %w", req.ID, err)
	}

	req.Description = res.Value.(*Description).Description
	return req, nil
}

// FilterAll filters every requirement. A requirement whose filtering fails
// keeps its original description.
func (s *Segmenter) FilterAll(ctx context.Context, reqs []standards.Requirement) ([]standards.Requirement, error) {
	out := make([]standards.Requirement, 0, len(reqs))
	for _, req := range reqs {
		filtered, err := s.Filter(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Warn("filtering failed, keeping original description", "id", req.ID, "error", err)
			out = append(out, req)
			continue
		}
		out = append(out, filtered)
	}
	return out, nil
}

// GroupTopics asks for a topic grouping of the given requirements.
func (s *Segmenter) GroupTopics(ctx context.Context, reqs []standards.Requirement) (*TopicList, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no requirements to group")
	}
	res, err := s.sender.Send(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: BuildTopicsPrompt(reqs),
	}}, TopicListSchema())
	if err != nil {
		return nil, fmt.Errorf("grouping requirements by topic: %w", err)
	}
	return res.Value.(*TopicList), nil
}

// RenderTopics flattens a topic grouping into the text block appended to
// generation prompts.
func RenderTopics(l *TopicList) string {
	var sb strings.Builder
	sb.WriteString("This work product can be grouped by these topics:\n")
	for _, t := range l.Topics {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Topic, strings.Join(t.IDs, ", "))
	}
	return sb.String()
}
