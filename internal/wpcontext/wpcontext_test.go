package wpcontext

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/standards"
	"github.com/checkaud/checkaud/internal/storage"
)

func writeGlossaryDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		terminologyFile: "Term,Definition\n" +
			"safety goal,Top-level safety requirement.\n" +
			"fault,Abnormal condition that can cause a failure.\n",
		disambiguationFile: "Concept,Definition,Purpose,Examples,Elements,Example Elements,Terminology ISO26262,Terminology ASPICE\n" +
			"requirement,A documented need.,Trace compliance.,braking request;steering request,id;text,REQ-1;REQ-2,safety requirement,software requirement\n",
		abbreviationsFile: "Abbreviation,Definition\n" +
			"ASIL,Automotive Safety Integrity Level\n" +
			"SRS,Software Requirements Specification\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadGlossary(t *testing.T) {
	g, err := LoadGlossary(writeGlossaryDir(t))
	if err != nil {
		t.Fatalf("LoadGlossary failed: %v", err)
	}

	if len(g.Terms) != 2 || g.Terms[0].Term != "safety goal" {
		t.Errorf("Terms = %+v", g.Terms)
	}
	if len(g.Abbreviations) != 2 || g.Abbreviations[0].Abbreviation != "ASIL" {
		t.Errorf("Abbreviations = %+v", g.Abbreviations)
	}

	if len(g.Concepts) != 1 {
		t.Fatalf("Concepts = %+v", g.Concepts)
	}
	c := g.Concepts[0]
	if c.Concept != "requirement" || c.TerminologyISO != "safety requirement" {
		t.Errorf("concept = %+v", c)
	}
	if len(c.Examples) != 2 || c.Examples[1] != "steering request" {
		t.Errorf("semicolon list not split: %v", c.Examples)
	}
}

func TestLoadGlossary_MissingColumn(t *testing.T) {
	dir := writeGlossaryDir(t)
	if err := os.WriteFile(filepath.Join(dir, terminologyFile), []byte("Definition\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGlossary(dir); err == nil {
		t.Fatal("LoadGlossary accepted terminology file without a term column")
	}
}

func TestValidate_EmptyListsAreValid(t *testing.T) {
	if err := (&TermList{}).Validate(); err != nil {
		t.Errorf("empty term list rejected: %v", err)
	}
	if err := (&Disambiguation{}).Validate(); err != nil {
		t.Errorf("empty disambiguation rejected: %v", err)
	}
	if err := (&AbbreviationList{}).Validate(); err != nil {
		t.Errorf("empty abbreviation list rejected: %v", err)
	}

	if err := (&TermList{Terms: []Term{{Term: "x"}}}).Validate(); err == nil {
		t.Error("term without definition accepted")
	}
	if err := (&Purpose{PurposeISO: "x"}).Validate(); err == nil {
		t.Error("purpose without ASPICE part accepted")
	}
}

func TestRender(t *testing.T) {
	c := &WorkProductContext{
		WorkProduct: "Software Requirements Specification",
		Description: Description{
			Purpose: Purpose{PurposeISO: "Ensure safety requirements are captured.", PurposeASPICE: "Support SWE.1."},
			Content: "Functional and safety requirements.",
			Uses:    "Input for architecture design.",
		},
		Concepts: Concepts{
			Terminology:   TermList{Terms: []Term{{Term: "fault", Definition: "Abnormal condition."}}},
			Abbreviations: AbbreviationList{Abbreviations: []Abbreviation{{Abbreviation: "ASIL", Definition: "Integrity level"}}},
		},
	}

	out := Render(c)
	for _, want := range []string{
		"**Purpose in ISO 26262:**",
		"Ensure safety requirements are captured.",
		"Support SWE.1.",
		"**Content:**",
		"**Uses:**",
		"'fault': Abnormal condition.",
		"'ASIL': Integrity level",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered context missing %q", want)
		}
	}

	// Empty sections are omitted entirely.
	if strings.Contains(out, "**Input:**") {
		t.Error("empty input section rendered")
	}
	if strings.Contains(out, "disambiguation concepts") {
		t.Error("empty disambiguation section rendered")
	}
}

func TestBuildPrompts(t *testing.T) {
	reqs := []standards.Requirement{{
		ID: "26262-6:2018.6.4.1", WorkProduct: "SRS",
		Standard: standards.StandardISO26262, Description: "Specify safety requirements.",
	}}

	if p := BuildPurposePrompt("SRS"); !strings.Contains(p, "purpose_iso") || !strings.Contains(p, "'**SRS**'") {
		t.Error("purpose prompt incomplete")
	}
	for name, p := range map[string]string{
		"content": BuildContentPrompt("SRS", reqs),
		"input":   BuildInputPrompt("SRS", reqs),
		"uses":    BuildUsesPrompt("SRS", reqs),
	} {
		if !strings.Contains(p, "26262-6:2018.6.4.1") {
			t.Errorf("%s prompt is missing the requirements table", name)
		}
	}

	tp := BuildTermFilterPrompt("SRS", []Term{{Term: "fault", Definition: "Abnormal condition."}})
	if !strings.Contains(tp, "**Term 1:** fault") {
		t.Error("term filter prompt is missing the terminology list")
	}
}

// glossarySender answers each prompt kind with a fixed structured result.
type glossarySender struct {
	calls     int
	failTerms bool
}

func (s *glossarySender) Send(_ context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error) {
	s.calls++
	if desc == nil {
		return prompter.Result{Raw: "narrative: " + messages[0].Content[:20]}, nil
	}
	switch desc.Name {
	case "work_product_purpose":
		return prompter.Result{Value: &Purpose{PurposeISO: "iso purpose", PurposeASPICE: "aspice purpose"}}, nil
	case "term_list":
		if s.failTerms {
			return prompter.Result{}, &prompter.ExhaustedError{Schema: desc.Name, Attempts: 4}
		}
		return prompter.Result{Value: &TermList{Terms: []Term{{Term: "fault", Definition: "def"}}}}, nil
	case "disambiguation":
		return prompter.Result{Value: &Disambiguation{Entries: []DisambiguationEntry{{Concept: "requirement"}}}}, nil
	case "abbreviation_list":
		return prompter.Result{Value: &AbbreviationList{Abbreviations: []Abbreviation{{Abbreviation: "ASIL", Definition: "level"}}}}, nil
	}
	return prompter.Result{}, nil
}

type memContextStore struct {
	contexts map[string]storage.Context
	saved    int
}

func newMemContextStore() *memContextStore {
	return &memContextStore{contexts: make(map[string]storage.Context)}
}

func (m *memContextStore) GetContext(wp string) (storage.Context, error) {
	c, ok := m.contexts[wp]
	if !ok {
		return storage.Context{}, storage.ErrNotFound
	}
	return c, nil
}

func (m *memContextStore) SaveContext(wp string, payload []byte) error {
	m.contexts[wp] = storage.Context{WorkProduct: wp, Payload: payload}
	m.saved++
	return nil
}

func glossaryFixture(t *testing.T) *Glossary {
	t.Helper()
	g, err := LoadGlossary(writeGlossaryDir(t))
	if err != nil {
		t.Fatalf("LoadGlossary failed: %v", err)
	}
	return g
}

func TestGenerate_BuildsAndStoresContext(t *testing.T) {
	sender := &glossarySender{}
	store := newMemContextStore()
	gen := NewGenerator(sender, store, glossaryFixture(t), false)

	reqs := []standards.Requirement{{ID: "SWE.1.BP1", WorkProduct: "SRS", Standard: standards.StandardASPICE, Description: "Specify."}}
	c, err := gen.Generate(context.Background(), "SRS", reqs)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if c.Description.Purpose.PurposeISO != "iso purpose" {
		t.Errorf("purpose = %+v", c.Description.Purpose)
	}
	if c.Description.Content == "" || c.Description.Input == "" || c.Description.Uses == "" {
		t.Errorf("narrative sections missing: %+v", c.Description)
	}
	if len(c.Concepts.Terminology.Terms) == 0 || len(c.Concepts.Abbreviations.Abbreviations) == 0 {
		t.Errorf("concepts not filtered: %+v", c.Concepts)
	}
	if store.saved != 1 {
		t.Errorf("store saved %d contexts, want 1", store.saved)
	}

	var round WorkProductContext
	if err := json.Unmarshal(store.contexts["SRS"].Payload, &round); err != nil {
		t.Fatalf("stored payload is not valid JSON: %v", err)
	}
}

func TestGenerate_FailedBatchDegrades(t *testing.T) {
	sender := &glossarySender{failTerms: true}
	store := newMemContextStore()
	gen := NewGenerator(sender, store, glossaryFixture(t), false)

	c, err := gen.Generate(context.Background(), "SRS", nil)
	if err != nil {
		t.Fatalf("Generate failed on a droppable batch: %v", err)
	}
	if len(c.Concepts.Terminology.Terms) != 0 {
		t.Errorf("failed batch still contributed terms: %+v", c.Concepts.Terminology)
	}
	if len(c.Concepts.Disambiguation.Entries) == 0 {
		t.Error("unrelated batches were dropped too")
	}
}

func TestGenerate_ReusesStoredContext(t *testing.T) {
	store := newMemContextStore()
	payload, _ := json.Marshal(&WorkProductContext{
		WorkProduct: "SRS",
		Description: Description{Purpose: Purpose{PurposeISO: "stored", PurposeASPICE: "stored"}},
	})
	store.contexts["SRS"] = storage.Context{WorkProduct: "SRS", Payload: payload}

	sender := &glossarySender{}
	gen := NewGenerator(sender, store, nil, true)

	c, err := gen.Generate(context.Background(), "SRS", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("sender called %d times for a reused context", sender.calls)
	}
	if c.Description.Purpose.PurposeISO != "stored" {
		t.Errorf("reused context = %+v", c)
	}
}

func TestProvider_ContextBlock(t *testing.T) {
	store := newMemContextStore()
	payload, _ := json.Marshal(&WorkProductContext{
		WorkProduct: "SRS",
		Description: Description{Purpose: Purpose{PurposeISO: "iso purpose", PurposeASPICE: "aspice purpose"}},
	})
	store.contexts["SRS"] = storage.Context{WorkProduct: "SRS", Payload: payload}

	p := NewProvider(store)
	if block := p.ContextBlock("SRS"); !strings.Contains(block, "iso purpose") {
		t.Errorf("ContextBlock = %q", block)
	}
	if block := p.ContextBlock("missing"); block != "" {
		t.Errorf("ContextBlock(missing) = %q, want empty", block)
	}

	store.contexts["broken"] = storage.Context{WorkProduct: "broken", Payload: []byte("not json")}
	if block := p.ContextBlock("broken"); block != "" {
		t.Errorf("ContextBlock(broken) = %q, want empty", block)
	}
}
