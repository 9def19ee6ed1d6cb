package wpcontext

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Glossary is the raw disambiguation material loaded from the dataset
// directory, before it is filtered per work product.
type Glossary struct {
	Terms         []Term
	Concepts      []DisambiguationEntry
	Abbreviations []Abbreviation
}

// Glossary file names expected inside the dataset directory.
const (
	terminologyFile    = "terminology_iso.csv"
	disambiguationFile = "disambiguation.csv"
	abbreviationsFile  = "abbreviations.csv"
)

// LoadGlossary reads the three glossary CSV files from dir. Column headers
// are matched case-insensitively; list-valued disambiguation columns hold
// semicolon-separated values.
func LoadGlossary(dir string) (*Glossary, error) {
	g := &Glossary{}

	rows, err := readCSV(filepath.Join(dir, terminologyFile), "term", "definition")
	if err != nil {
		return nil, fmt.Errorf("loading terminology: %w", err)
	}
	for _, row := range rows {
		g.Terms = append(g.Terms, Term{Term: row["term"], Definition: row["definition"]})
	}

	rows, err = readCSV(filepath.Join(dir, disambiguationFile), "concept", "definition")
	if err != nil {
		return nil, fmt.Errorf("loading disambiguation: %w", err)
	}
	for _, row := range rows {
		g.Concepts = append(g.Concepts, DisambiguationEntry{
			Concept:           row["concept"],
			Definition:        row["definition"],
			Purpose:           row["purpose"],
			Examples:          splitList(row["examples"]),
			Elements:          splitList(row["elements"]),
			ExampleElements:   splitList(row["example elements"]),
			TerminologyISO:    row["terminology iso26262"],
			TerminologyASPICE: row["terminology aspice"],
		})
	}

	rows, err = readCSV(filepath.Join(dir, abbreviationsFile), "abbreviation", "definition")
	if err != nil {
		return nil, fmt.Errorf("loading abbreviations: %w", err)
	}
	for _, row := range rows {
		g.Abbreviations = append(g.Abbreviations, Abbreviation{
			Abbreviation: row["abbreviation"],
			Definition:   row["definition"],
		})
	}

	return g, nil
}

// readCSV reads a CSV file into one map per row, keyed by lowercased
// header name. The listed columns must be present.
func readCSV(path string, required ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, want := range required {
		found := false
		for _, h := range header {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing required column %q", want)
		}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
