package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/pipeline"
	"github.com/checkaud/checkaud/internal/storage"
)

const testToken = "test-token"

// stubRunner answers pipeline calls with canned artifacts.
type stubRunner struct {
	result    *pipeline.RunResult
	evals     []storage.Evaluation
	stored    map[string]*checklist.Checklist
	lastWPs   []string
	lastLevel evaluation.Levels
	err       error
}

func (s *stubRunner) GenerateChecklists(_ context.Context, workProducts []string) (*pipeline.RunResult, error) {
	s.lastWPs = workProducts
	return s.result, s.err
}

func (s *stubRunner) Evaluate(_ context.Context, workProducts []string, levels evaluation.Levels) ([]storage.Evaluation, error) {
	s.lastWPs = workProducts
	s.lastLevel = levels
	return s.evals, s.err
}

func (s *stubRunner) StoredChecklist(wp string) (*checklist.Checklist, error) {
	cl, ok := s.stored[wp]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cl, nil
}

type stubLister struct {
	checklists  []storage.Checklist
	evaluations []storage.Evaluation
	lastLevel   string
}

func (s *stubLister) ListChecklists() ([]storage.Checklist, error) {
	return s.checklists, nil
}

func (s *stubLister) ListEvaluations(level string) ([]storage.Evaluation, error) {
	s.lastLevel = level
	return s.evaluations, nil
}

func testServer(t *testing.T, runner *stubRunner, lister *stubLister) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewAppHandler(AppDeps{
		Runner: runner,
		Store:  lister,
		Token:  testToken,
		Levels: evaluation.Levels{Question: true},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	srv := testServer(t, &stubRunner{}, &stubLister{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBearerAuth_RejectsBadToken(t *testing.T) {
	srv := testServer(t, &stubRunner{}, &stubLister{})

	for _, token := range []string{"", "wrong"} {
		resp := doJSON(t, http.MethodGet, srv.URL+"/checklists", token, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}
}

func TestGenerate(t *testing.T) {
	runner := &stubRunner{
		result: &pipeline.RunResult{
			RunID: "run-1",
			Checklists: []*checklist.Checklist{
				{WorkProduct: "Software Architecture", Items: []checklist.Item{{Title: "Design"}}},
			},
			Skipped: []string{"Safety Plan"},
		},
	}
	srv := testServer(t, runner, &stubLister{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/generate", testToken,
		`{"work_products": ["Software Architecture", "Safety Plan"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.RunID != "run-1" || len(out.Generated) != 1 || len(out.Skipped) != 1 {
		t.Errorf("response = %+v", out)
	}
	if len(runner.lastWPs) != 2 {
		t.Errorf("runner saw work products %v", runner.lastWPs)
	}
}

func TestGenerate_InvalidBody(t *testing.T) {
	srv := testServer(t, &stubRunner{}, &stubLister{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/generate", testToken, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEvaluate_DefaultsLevels(t *testing.T) {
	runner := &stubRunner{
		evals: []storage.Evaluation{
			{ID: "e1", Level: "question", WorkProduct: "Software Architecture", Subject: "Design", Rubric: "traceability", Score: 3},
		},
	}
	srv := testServer(t, runner, &stubLister{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/evaluate", testToken, `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// No levels in the request: the server defaults apply.
	if !runner.lastLevel.Question || runner.lastLevel.Checklist || runner.lastLevel.Requirement {
		t.Errorf("levels = %+v", runner.lastLevel)
	}

	var out struct {
		Evaluations []EvaluationView `json:"evaluations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out.Evaluations) != 1 || out.Evaluations[0].Score != 3 {
		t.Errorf("evaluations = %+v", out.Evaluations)
	}
}

func TestEvaluate_ExplicitLevels(t *testing.T) {
	runner := &stubRunner{}
	srv := testServer(t, runner, &stubLister{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/evaluate", testToken,
		`{"levels": {"checklist": true, "requirement": true}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if runner.lastLevel.Question || !runner.lastLevel.Checklist || !runner.lastLevel.Requirement {
		t.Errorf("levels = %+v", runner.lastLevel)
	}
}

func TestListChecklists(t *testing.T) {
	lister := &stubLister{
		checklists: []storage.Checklist{
			{WorkProduct: "Software Architecture", RunID: "run-1", CreatedAt: time.Now().UTC()},
		},
	}
	srv := testServer(t, &stubRunner{}, lister)

	resp := doJSON(t, http.MethodGet, srv.URL+"/checklists", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out []ChecklistSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out) != 1 || out[0].WorkProduct != "Software Architecture" || out[0].RunID != "run-1" {
		t.Errorf("summaries = %+v", out)
	}
}

func TestGetChecklist(t *testing.T) {
	runner := &stubRunner{
		stored: map[string]*checklist.Checklist{
			"Software Architecture": {
				WorkProduct: "Software Architecture",
				Items: []checklist.Item{{
					IDs: []string{"26262-6:2018.7.4.1"}, Title: "Design",
					Questions: []string{"Is the design documented?"},
				}},
			},
		},
	}
	srv := testServer(t, runner, &stubLister{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/checklists/Software%20Architecture", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var cl checklist.Checklist
	if err := json.NewDecoder(resp.Body).Decode(&cl); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if cl.WorkProduct != "Software Architecture" || len(cl.Items) != 1 {
		t.Errorf("checklist = %+v", cl)
	}
}

func TestGetChecklist_NotFound(t *testing.T) {
	srv := testServer(t, &stubRunner{}, &stubLister{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/checklists/Unknown", testToken, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListEvaluations_LevelFilter(t *testing.T) {
	lister := &stubLister{
		evaluations: []storage.Evaluation{
			{ID: "e1", Level: "checklist", WorkProduct: "Software Architecture", Rubric: "consistency", Score: 2},
		},
	}
	srv := testServer(t, &stubRunner{}, lister)

	resp := doJSON(t, http.MethodGet, srv.URL+"/evaluations?level=checklist", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if lister.lastLevel != "checklist" {
		t.Errorf("lister saw level %q", lister.lastLevel)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/evaluations?level=bogus", testToken, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus level: status = %d, want 400", resp.StatusCode)
	}
}
