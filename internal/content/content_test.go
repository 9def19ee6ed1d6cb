package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
)

func isoReq() standards.Requirement {
	return standards.Requirement{
		ID:          "26262-6:2018.6.4.1",
		WorkProduct: "Software Requirements Specification",
		Standard:    standards.StandardISO26262,
		Version:     "2018",
		Part:        6, Clause: 6, Section: 4, Subsection: 1,
		Description: "Software safety requirements shall be specified in accordance with Clause 9.",
	}
}

func TestValidate(t *testing.T) {
	if err := (&Description{}).Validate(); err == nil {
		t.Error("empty description accepted")
	}
	if err := (&Description{Description: "x"}).Validate(); err != nil {
		t.Errorf("valid description rejected: %v", err)
	}

	if err := (&TopicList{}).Validate(); err == nil {
		t.Error("empty topic list accepted")
	}
	if err := (&TopicList{Topics: []Topic{{Topic: "t"}}}).Validate(); err == nil {
		t.Error("topic without IDs accepted")
	}
	ok := &TopicList{Topics: []Topic{{Topic: "t", IDs: []string{"a"}}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid topic list rejected: %v", err)
	}
}

func TestBuildFilterPrompt(t *testing.T) {
	p := BuildFilterPrompt(isoReq(), "Table 1 content here.")

	for _, want := range []string{
		"**ISO 26262**",
		"26262-6:2018.6.4.1",
		"- **Part:** 6",
		"**External references:**",
		"Table 1 content here.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	aspice := standards.Requirement{
		ID: "SWE.1.BP1", WorkProduct: "SRS",
		Standard: standards.StandardASPICE, Description: "Specify.",
	}
	p = BuildFilterPrompt(aspice, "")
	if strings.Contains(p, "- **Part:**") {
		t.Error("ASPICE requirement rendered with ISO position fields")
	}
	if strings.Contains(p, "**External references:**") {
		t.Error("prompt without knowledge rendered an external references section")
	}
}

type contentSender struct {
	calls   int
	failing bool
}

func (s *contentSender) Send(_ context.Context, _ []llm.Message, desc *schema.Descriptor) (prompter.Result, error) {
	s.calls++
	if s.failing {
		return prompter.Result{}, &prompter.ExhaustedError{Schema: desc.Name, Attempts: 4}
	}
	switch desc.Name {
	case "requirement_description":
		return prompter.Result{Value: &Description{Description: "filtered description"}}, nil
	case "topic_list":
		return prompter.Result{Value: &TopicList{Topics: []Topic{
			{Topic: "Specification", IDs: []string{"26262-6:2018.6.4.1"}},
		}}}, nil
	}
	return prompter.Result{}, nil
}

type failingKnowledge struct{}

func (failingKnowledge) Extract(context.Context, standards.Requirement) (string, error) {
	return "", errors.New("index unavailable")
}

func TestFilter_ReplacesDescription(t *testing.T) {
	s := NewSegmenter(&contentSender{}, nil)

	got, err := s.Filter(context.Background(), isoReq())
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got.Description != "filtered description" {
		t.Errorf("Description = %q", got.Description)
	}
	if got.ID != "26262-6:2018.6.4.1" {
		t.Errorf("requirement identity changed: %q", got.ID)
	}
}

func TestFilter_KnowledgeFailureDegrades(t *testing.T) {
	s := NewSegmenter(&contentSender{}, failingKnowledge{})
	if _, err := s.Filter(context.Background(), isoReq()); err != nil {
		t.Fatalf("Filter failed despite optional enrichment: %v", err)
	}
}

func TestFilterAll_KeepsOriginalOnFailure(t *testing.T) {
	s := NewSegmenter(&contentSender{failing: true}, nil)

	req := isoReq()
	out, err := s.FilterAll(context.Background(), []standards.Requirement{req})
	if err != nil {
		t.Fatalf("FilterAll failed: %v", err)
	}
	if len(out) != 1 || out[0].Description != req.Description {
		t.Errorf("failed filtering did not keep original: %+v", out)
	}
}

func TestGroupTopics(t *testing.T) {
	s := NewSegmenter(&contentSender{}, nil)

	topics, err := s.GroupTopics(context.Background(), []standards.Requirement{isoReq()})
	if err != nil {
		t.Fatalf("GroupTopics failed: %v", err)
	}
	if len(topics.Topics) != 1 || topics.Topics[0].Topic != "Specification" {
		t.Errorf("topics = %+v", topics)
	}

	if _, err := s.GroupTopics(context.Background(), nil); err == nil {
		t.Error("GroupTopics accepted an empty requirement set")
	}

	block := RenderTopics(topics)
	if !strings.Contains(block, "Specification: 26262-6:2018.6.4.1") {
		t.Errorf("rendered topics = %q", block)
	}
}
