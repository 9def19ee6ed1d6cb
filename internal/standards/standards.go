// Package standards loads the combined ISO 26262 / Automotive SPICE
// requirement dataset that checklist generation runs against.
package standards

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Standard names recognized in the dataset.
const (
	StandardISO26262 = "ISO 26262"
	StandardASPICE   = "ASPICE"
)

// Requirement is one row of the combined dataset. The ISO reference fields
// (Version through Subsubsection) are zero for ASPICE requirements.
type Requirement struct {
	ID            string
	WorkProduct   string
	Description   string
	Standard      string
	Version       string
	Part          int
	Clause        int
	Section       int
	Subsection    int
	Subsubsection int
}

// Ref renders the ISO reference of a requirement ("Part 6, Clause 10").
func (r Requirement) Ref() string {
	if r.Standard != StandardISO26262 {
		return r.Standard
	}
	return fmt.Sprintf("Part %d, Clause %d", r.Part, r.Clause)
}

var requiredColumns = []string{"work product", "id", "description"}

// Load reads a combined-standards CSV. The header must contain the Work
// Product, ID and Description columns (matched case-insensitively); rows
// listing several work products separated by newlines are expanded into
// one requirement per work product. Standard metadata is derived from the
// ID: IDs starting with "26262" parse as ISO 26262 references, everything
// else is ASPICE.
func Load(path string) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening standards dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading dataset header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	// Rows may carry extra trailing fields, but every required column
	// must be present.
	need := 0
	for _, want := range requiredColumns {
		if cols[want] > need {
			need = cols[want]
		}
	}

	var reqs []Requirement
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		line++

		if len(record) <= need {
			return nil, fmt.Errorf("row %d: %d fields, want at least %d", line, len(record), need+1)
		}

		id := strings.TrimSpace(record[cols["id"]])
		description := strings.TrimSpace(record[cols["description"]])
		if id == "" || description == "" {
			continue
		}

		for wp := range strings.SplitSeq(record[cols["work product"]], "\n") {
			wp = strings.TrimSpace(wp)
			if wp == "" {
				continue
			}
			req := Requirement{
				ID:          id,
				WorkProduct: wp,
				Description: description,
			}
			if strings.HasPrefix(id, "26262") {
				if err := parseISOID(id, &req); err != nil {
					return nil, fmt.Errorf("row %d: %w", line, err)
				}
			} else {
				req.Standard = StandardASPICE
			}
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

// parseISOID decodes a long ISO 26262 ID of the form
// "26262-<part>:<version>.<clause>.<section>[.<subsection>[.<subsubsection>]]".
func parseISOID(id string, req *Requirement) error {
	head, rest, ok := strings.Cut(id, ":")
	if !ok {
		return fmt.Errorf("malformed ISO 26262 id %q", id)
	}
	_, partStr, ok := strings.Cut(head, "-")
	if !ok {
		return fmt.Errorf("malformed ISO 26262 id %q: missing part", id)
	}
	part, err := strconv.Atoi(partStr)
	if err != nil {
		return fmt.Errorf("malformed ISO 26262 id %q: part %q", id, partStr)
	}

	fields := strings.Split(rest, ".")
	if len(fields) < 3 {
		return fmt.Errorf("malformed ISO 26262 id %q: want version.clause.section", id)
	}

	req.Standard = StandardISO26262
	req.Version = fields[0]
	req.Part = part

	numbers := []*int{&req.Clause, &req.Section, &req.Subsection, &req.Subsubsection}
	for i, dst := range numbers {
		if i+1 >= len(fields) {
			break
		}
		n, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return fmt.Errorf("malformed ISO 26262 id %q: field %q", id, fields[i+1])
		}
		*dst = n
	}
	return nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// WorkProducts returns the distinct work products in first-seen order.
func WorkProducts(reqs []Requirement) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range reqs {
		if !seen[r.WorkProduct] {
			seen[r.WorkProduct] = true
			out = append(out, r.WorkProduct)
		}
	}
	return out
}

// ForWorkProduct returns the requirements belonging to wp.
func ForWorkProduct(reqs []Requirement, wp string) []Requirement {
	var out []Requirement
	for _, r := range reqs {
		if r.WorkProduct == wp {
			out = append(out, r)
		}
	}
	return out
}

// Restrict keeps only requirements whose work product is in keep.
func Restrict(reqs []Requirement, keep []string) []Requirement {
	allowed := make(map[string]bool, len(keep))
	for _, wp := range keep {
		allowed[wp] = true
	}
	var out []Requirement
	for _, r := range reqs {
		if allowed[r.WorkProduct] {
			out = append(out, r)
		}
	}
	return out
}
