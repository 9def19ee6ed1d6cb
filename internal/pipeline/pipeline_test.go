package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/config"
	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/schema"
	"github.com/checkaud/checkaud/internal/storage"
)

const requirementsCSV = `Work Product,ID,Description
Software Requirements Specification,26262-6:2018.6.4.1,Software safety requirements shall be specified.
Software Requirements Specification,SWE.1.BP1,Specify software requirements.
Software Architecture,26262-6:2018.7.4.1,The software architectural design shall be developed.
`

// writeDataset lays out a minimal dataset directory and returns a config
// pointing at it.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, requirementsFile), []byte(requirementsCSV), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}

	var cfg config.Config
	cfg.Storage.DatasetDir = dir
	cfg.Storage.ReportDir = filepath.Join(t.TempDir(), "reports")
	cfg.Pipeline.NewChecklists = true
	cfg.Pipeline.NewContext = true
	return cfg
}

// pipeSender answers every schema-constrained prompt with a canned value
// for its descriptor and every raw prompt with fixed text.
type pipeSender struct {
	calls int
}

func (s *pipeSender) Send(_ context.Context, messages []llm.Message, desc *schema.Descriptor) (prompter.Result, error) {
	s.calls++
	if desc == nil {
		return prompter.Result{Raw: "free text"}, nil
	}
	switch desc.Name {
	case "checklist":
		// The work product is the first bold span of the prompt.
		var wp string
		if _, rest, ok := strings.Cut(messages[0].Content, "**"); ok {
			wp, _, _ = strings.Cut(rest, "**")
		}
		return prompter.Result{Value: &checklist.Checklist{
			WorkProduct: wp,
			Items: []checklist.Item{{
				IDs:       []string{"26262-6:2018.6.4.1"},
				Title:     "Coverage",
				Questions: []string{"Is every requirement covered?"},
			}},
		}}, nil
	case "rubric_result":
		return prompter.Result{Value: &evaluation.Result{Score: 3, Notes: "fine"}}, nil
	default:
		return prompter.Result{}, &prompter.ExhaustedError{Schema: desc.Name, Attempts: 4}
	}
}

type pipeStore struct {
	checklists  map[string]storage.Checklist
	contexts    map[string][]byte
	evaluations []storage.Evaluation
	started     []string
	finished    map[string]string
}

func newPipeStore() *pipeStore {
	return &pipeStore{
		checklists: make(map[string]storage.Checklist),
		contexts:   make(map[string][]byte),
		finished:   make(map[string]string),
	}
}

func (m *pipeStore) GetChecklist(wp string) (storage.Checklist, error) {
	cl, ok := m.checklists[wp]
	if !ok {
		return storage.Checklist{}, storage.ErrNotFound
	}
	return cl, nil
}

func (m *pipeStore) SaveChecklist(wp, runID string, payload []byte) error {
	m.checklists[wp] = storage.Checklist{WorkProduct: wp, RunID: runID, Payload: payload}
	return nil
}

func (m *pipeStore) GetContext(wp string) (storage.Context, error) {
	payload, ok := m.contexts[wp]
	if !ok {
		return storage.Context{}, storage.ErrNotFound
	}
	return storage.Context{WorkProduct: wp, Payload: payload}, nil
}

func (m *pipeStore) SaveContext(wp string, payload []byte) error {
	m.contexts[wp] = payload
	return nil
}

func (m *pipeStore) SaveEvaluation(e storage.Evaluation) error {
	m.evaluations = append(m.evaluations, e)
	return nil
}

func (m *pipeStore) StartRun(id string) error {
	m.started = append(m.started, id)
	return nil
}

func (m *pipeStore) FinishRun(id, status, errMsg string) error {
	m.finished[id] = status
	return nil
}

func newTestPipeline(t *testing.T, cfg config.Config, sender Sender, store Store) *Pipeline {
	t.Helper()
	p, err := New(cfg, sender, store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNew_LoadsRequirements(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, newPipeStore())
	if len(p.Requirements()) != 3 {
		t.Fatalf("got %d requirements, want 3", len(p.Requirements()))
	}
}

func TestGenerateChecklists_AllWorkProducts(t *testing.T) {
	store := newPipeStore()
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, store)

	result, err := p.GenerateChecklists(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateChecklists failed: %v", err)
	}

	if len(result.Checklists) != 2 {
		t.Fatalf("got %d checklists, want 2", len(result.Checklists))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("skipped = %v", result.Skipped)
	}
	if store.finished[result.RunID] != storage.RunCompleted {
		t.Errorf("run status = %q", store.finished[result.RunID])
	}
	for _, cl := range result.Checklists {
		if store.checklists[cl.WorkProduct].RunID != result.RunID {
			t.Errorf("stored checklist for %q carries run %q", cl.WorkProduct, store.checklists[cl.WorkProduct].RunID)
		}
	}
}

func TestGenerateChecklists_WritesReports(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg, &pipeSender{}, newPipeStore())

	if _, err := p.GenerateChecklists(context.Background(), nil); err != nil {
		t.Fatalf("GenerateChecklists failed: %v", err)
	}

	for _, name := range []string{
		"Software_Requirements_Specification_checklist.md",
		"Software_Architecture_checklist.md",
		questionSheet,
		requirementSheet,
	} {
		if _, err := os.Stat(filepath.Join(cfg.Storage.ReportDir, name)); err != nil {
			t.Errorf("report %s missing: %v", name, err)
		}
	}
}

func TestGenerateChecklists_RestrictsWorkProducts(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, newPipeStore())

	result, err := p.GenerateChecklists(context.Background(), []string{"Software Architecture"})
	if err != nil {
		t.Fatalf("GenerateChecklists failed: %v", err)
	}
	if len(result.Checklists) != 1 || result.Checklists[0].WorkProduct != "Software Architecture" {
		t.Fatalf("checklists = %+v", result.Checklists)
	}
}

func TestGenerateChecklists_UnknownWorkProduct(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, newPipeStore())

	if _, err := p.GenerateChecklists(context.Background(), []string{"Nonexistent"}); err == nil {
		t.Fatal("unknown work product accepted")
	}
}

func TestGenerateChecklists_TopicGroupingFailureDegrades(t *testing.T) {
	// The sender rejects the topic_list schema; generation must still
	// complete without topic blocks.
	cfg := testConfig(t)
	cfg.Pipeline.GroupTopics = true
	store := newPipeStore()
	p := newTestPipeline(t, cfg, &pipeSender{}, store)

	result, err := p.GenerateChecklists(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateChecklists failed: %v", err)
	}
	if len(result.Checklists) != 2 {
		t.Fatalf("got %d checklists, want 2", len(result.Checklists))
	}
	if store.finished[result.RunID] != storage.RunCompleted {
		t.Errorf("run status = %q", store.finished[result.RunID])
	}
}

func TestEvaluate_ScoresStoredChecklists(t *testing.T) {
	store := newPipeStore()
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, store)

	if _, err := p.GenerateChecklists(context.Background(), nil); err != nil {
		t.Fatalf("GenerateChecklists failed: %v", err)
	}

	evals, err := p.Evaluate(context.Background(), nil, evaluation.Levels{Checklist: true})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// 2 checklists x 2 checklist rubrics.
	if len(evals) != 4 {
		t.Fatalf("got %d evaluations, want 4", len(evals))
	}
	if len(store.evaluations) != 4 {
		t.Errorf("store holds %d evaluations", len(store.evaluations))
	}
}

func TestEvaluate_SkipsMissingChecklists(t *testing.T) {
	store := newPipeStore()
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, store)

	payload, _ := json.Marshal(&checklist.Checklist{
		WorkProduct: "Software Architecture",
		Items:       []checklist.Item{{IDs: []string{"26262-6:2018.7.4.1"}, Title: "Design", Questions: []string{"Is the design documented?"}}},
	})
	if err := store.SaveChecklist("Software Architecture", "run-0", payload); err != nil {
		t.Fatal(err)
	}

	evals, err := p.Evaluate(context.Background(), nil, evaluation.Levels{Checklist: true})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for _, e := range evals {
		if e.WorkProduct != "Software Architecture" {
			t.Errorf("unexpected evaluation for %q", e.WorkProduct)
		}
	}
	if len(evals) != 2 {
		t.Errorf("got %d evaluations, want 2", len(evals))
	}
}

func TestGenerateContexts_FailuresAreSkipped(t *testing.T) {
	// The sender rejects every context schema, so no context survives;
	// that is a degraded outcome, not an error.
	store := newPipeStore()
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, store)

	contexts, err := p.GenerateContexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateContexts failed: %v", err)
	}
	if len(contexts) != 0 {
		t.Errorf("got %d contexts, want 0", len(contexts))
	}
	if len(store.contexts) != 0 {
		t.Errorf("store holds %d contexts", len(store.contexts))
	}
}

func TestStoredChecklist_NotFound(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), &pipeSender{}, newPipeStore())

	if _, err := p.StoredChecklist("Software Architecture"); err == nil {
		t.Fatal("missing checklist yielded no error")
	}
}
