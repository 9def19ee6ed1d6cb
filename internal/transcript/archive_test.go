package transcript

import (
	"os"
	"strings"
	"testing"

	"github.com/checkaud/checkaud/internal/schema"
)

func TestAppend_WritesThrough(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	if err := a.Append(schema.CategoryChecklist, "user", "generate the checklist"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Readable before Close: writes must be flushed per mutation.
	data, err := os.ReadFile(a.Path(schema.CategoryChecklist))
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}
	if !strings.Contains(string(data), "user: generate the checklist") {
		t.Errorf("transcript = %q", data)
	}
}

func TestAppend_SeparatesCategories(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	a.Append(schema.CategoryChecklist, "user", "checklist input")
	a.Append(schema.CategoryEvaluation, "user", "evaluation input")

	checklist, _ := os.ReadFile(a.Path(schema.CategoryChecklist))
	evaluation, _ := os.ReadFile(a.Path(schema.CategoryEvaluation))

	if strings.Contains(string(checklist), "evaluation input") {
		t.Error("checklist bucket contains evaluation entry")
	}
	if strings.Contains(string(evaluation), "checklist input") {
		t.Error("evaluation bucket contains checklist entry")
	}
}

func TestAppend_SystemEntryEndsTurn(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	a.Append(schema.CategoryContext, "user", "what is the purpose")
	a.Append(schema.CategoryContext, "system", `{"purpose":"..."}`)

	data, _ := os.ReadFile(a.Path(schema.CategoryContext))
	if !strings.Contains(string(data), separator) {
		t.Error("no separator after system entry")
	}
	if strings.Count(string(data), separator) != 1 {
		t.Errorf("separator count = %d, want 1", strings.Count(string(data), separator))
	}
}

func TestAppend_EmptyCategoryFallsBackToUnclassified(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	if err := a.Append("", "user", "stray message"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	data, err := os.ReadFile(a.Path(schema.CategoryUnclassified))
	if err != nil {
		t.Fatalf("reading unclassified bucket: %v", err)
	}
	if !strings.Contains(string(data), "stray message") {
		t.Errorf("unclassified transcript = %q", data)
	}
}

func TestAppend_IsCumulative(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	a.Append(schema.CategoryChecklist, "user", "first")
	a.Close()

	// Reopening must append, not truncate.
	b, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer b.Close()
	b.Append(schema.CategoryChecklist, "user", "second")

	data, _ := os.ReadFile(b.Path(schema.CategoryChecklist))
	if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
		t.Errorf("transcript lost history: %q", data)
	}
}
