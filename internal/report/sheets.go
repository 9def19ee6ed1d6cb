package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/standards"
	"github.com/checkaud/checkaud/internal/storage"
)

// itemCell renders one checklist item into a single review-sheet cell.
func itemCell(item checklist.Item) string {
	var sb strings.Builder
	sb.WriteString("**Questions:**\n")
	for i, q := range item.Questions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	sb.WriteString("\n**IDs:**\n")
	for _, id := range item.IDs {
		fmt.Fprintf(&sb, "- %s\n", id)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// WriteQuestionSheet writes the question-level review sheet: one row per
// checklist item across all checklists.
func WriteQuestionSheet(path string, checklists []*checklist.Checklist) error {
	w, closeFn, err := openSheet(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.Write([]string{"Work Product", "Topic", "Checklist Item"}); err != nil {
		return fmt.Errorf("writing sheet header: %w", err)
	}
	for _, cl := range checklists {
		for _, item := range cl.Items {
			if err := w.Write([]string{cl.WorkProduct, item.Title, itemCell(item)}); err != nil {
				return fmt.Errorf("writing sheet row: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRequirementSheet writes the requirement-level review sheet: one row
// per requirement and checklist item tracing to it. Requirements no item
// traces to still get a row with empty item columns.
func WriteRequirementSheet(path string, checklists []*checklist.Checklist, reqs []standards.Requirement) error {
	w, closeFn, err := openSheet(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{"Work Product", "ID", "Description", "Title", "Questions", "List IDs"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing sheet header: %w", err)
	}

	byWorkProduct := make(map[string]*checklist.Checklist, len(checklists))
	for _, cl := range checklists {
		byWorkProduct[cl.WorkProduct] = cl
	}

	for _, req := range reqs {
		var items []checklist.Item
		if cl := byWorkProduct[req.WorkProduct]; cl != nil {
			for _, item := range cl.Items {
				if slices.Contains(item.IDs, req.ID) {
					items = append(items, item)
				}
			}
		}
		if len(items) == 0 {
			row := []string{req.WorkProduct, req.ID, req.Description, "", "", ""}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing sheet row: %w", err)
			}
			continue
		}
		for _, item := range items {
			row := []string{
				req.WorkProduct, req.ID, req.Description,
				item.Title, strings.Join(item.Questions, "\n"), strings.Join(item.IDs, ", "),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing sheet row: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEvaluationSheet writes rubric scores, one row per evaluation.
func WriteEvaluationSheet(path string, evals []storage.Evaluation) error {
	w, closeFn, err := openSheet(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{"Level", "Work Product", "Subject", "Rubric", "Score", "Notes"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing sheet header: %w", err)
	}
	for _, e := range evals {
		row := []string{e.Level, e.WorkProduct, e.Subject, e.Rubric, strconv.Itoa(e.Score), e.Notes}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing sheet row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func openSheet(path string) (*csv.Writer, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating sheet: %w", err)
	}
	return csv.NewWriter(f), func() { f.Close() }, nil
}
