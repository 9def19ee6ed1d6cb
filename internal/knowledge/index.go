package knowledge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/checkaud/checkaud/internal/standards"
)

// Dataset file names the index reads from the dataset directory. All of
// them are optional; a missing file leaves that part of the index empty.
const (
	tablesFile    = "iso_tables.csv"
	tablesHTML    = "iso_tables.html"
	structureFile = "iso_structure.csv"
	excerptsDir   = "excerpts"
)

// TableRow is one row of an ISO 26262 method table.
type TableRow struct {
	Part   int
	Table  int
	Title  string
	Row    string
	Method string
	ASILA  string
	ASILB  string
	ASILC  string
	ASILD  string
}

// Titles names a requirement's position in the standard structure.
type Titles struct {
	Part    string
	Clause  string
	Section string
}

type structureRow struct {
	part, clause, section int
	titles                Titles
}

// Index holds the local ISO 26262 material that identified references are
// resolved against: method tables, the part/clause/section structure,
// the requirement dataset and optional text excerpts per part.
type Index struct {
	reqs     []standards.Requirement
	tables   []TableRow
	titles   []structureRow
	excerpts map[int]string
	logger   *slog.Logger
}

// LoadIndex builds the reference index from the dataset directory. reqs is
// the loaded requirement dataset used for clause and external ID lookups.
func LoadIndex(datasetDir string, reqs []standards.Requirement) (*Index, error) {
	idx := &Index{
		reqs:     reqs,
		excerpts: make(map[int]string),
		logger:   slog.Default(),
	}

	tables, err := loadTablesCSV(filepath.Join(datasetDir, tablesFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading table dataset: %w", err)
	}
	idx.tables = tables

	htmlTables, err := loadTablesHTMLFile(filepath.Join(datasetDir, tablesHTML))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading table annex: %w", err)
	}
	idx.tables = append(idx.tables, htmlTables...)

	titles, err := loadStructureCSV(filepath.Join(datasetDir, structureFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading structure dataset: %w", err)
	}
	idx.titles = titles

	if err := idx.loadExcerpts(filepath.Join(datasetDir, excerptsDir)); err != nil {
		return nil, fmt.Errorf("loading excerpts: %w", err)
	}

	idx.logger.Debug("reference index loaded",
		"tables", len(idx.tables), "titles", len(idx.titles), "excerpts", len(idx.excerpts))
	return idx, nil
}

// TitlesFor returns the structure titles for a position. Unknown positions
// return empty titles.
func (idx *Index) TitlesFor(part, clause, section int) Titles {
	for _, row := range idx.titles {
		if row.part == part && row.clause == clause && row.section == section {
			return row.titles
		}
	}
	// Fall back to clause-level titles when the section is unknown.
	for _, row := range idx.titles {
		if row.part == part && row.clause == clause {
			return Titles{Part: row.titles.Part, Clause: row.titles.Clause}
		}
	}
	return Titles{}
}

// TableText renders a referenced table, grouped by title. Returns "" when
// the table is not in the index.
func (idx *Index) TableText(part, table int) string {
	var sb strings.Builder
	var lastTitle string
	for _, row := range idx.tables {
		if row.Part != part || row.Table != table {
			continue
		}
		if row.Title != lastTitle {
			fmt.Fprintf(&sb, "Title: %s\n", row.Title)
			sb.WriteString("Row | Method | ASIL A | ASIL B | ASIL C | ASIL D\n")
			lastTitle = row.Title
		}
		fmt.Fprintf(&sb, "%s | %s | %s | %s | %s | %s\n",
			row.Row, row.Method, row.ASILA, row.ASILB, row.ASILC, row.ASILD)
	}
	return sb.String()
}

// ClauseRequirements returns the dataset requirements inside a clause.
func (idx *Index) ClauseRequirements(part, clause int) []standards.Requirement {
	var out []standards.Requirement
	for _, r := range idx.reqs {
		if r.Standard == standards.StandardISO26262 && r.Part == part && r.Clause == clause {
			out = append(out, r)
		}
	}
	return out
}

// LookupExternalID returns the dataset requirements matching an external
// ID reference.
func (idx *Index) LookupExternalID(e ExternalID) []standards.Requirement {
	var out []standards.Requirement
	for _, r := range idx.reqs {
		if r.Standard != standards.StandardISO26262 {
			continue
		}
		if r.Part != e.PartNumber || r.Clause != e.ClauseNumber || r.Section != e.SectionNumber {
			continue
		}
		if e.SubsectionNumber != 0 && r.Subsection != e.SubsectionNumber {
			continue
		}
		if e.SubsubsectionNumber != 0 && r.Subsubsection != e.SubsubsectionNumber {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ExcerptFor returns the loaded standard text excerpt for a part, or "".
func (idx *Index) ExcerptFor(part int) string {
	return idx.excerpts[part]
}

func loadTablesCSV(path string) ([]TableRow, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var out []TableRow
	for i, row := range rows {
		part, err := strconv.Atoi(row["part"])
		if err != nil {
			return nil, fmt.Errorf("row %d: part %q", i+1, row["part"])
		}
		table, err := strconv.Atoi(row["table"])
		if err != nil {
			return nil, fmt.Errorf("row %d: table %q", i+1, row["table"])
		}
		out = append(out, TableRow{
			Part:   part,
			Table:  table,
			Title:  row["title"],
			Row:    row["row"],
			Method: row["method"],
			ASILA:  row["asil a"],
			ASILB:  row["asil b"],
			ASILC:  row["asil c"],
			ASILD:  row["asil d"],
		})
	}
	return out, nil
}

func loadStructureCSV(path string) ([]structureRow, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var out []structureRow
	for i, row := range rows {
		part, err := strconv.Atoi(row["part"])
		if err != nil {
			return nil, fmt.Errorf("row %d: part %q", i+1, row["part"])
		}
		clause, err := strconv.Atoi(row["clause"])
		if err != nil {
			return nil, fmt.Errorf("row %d: clause %q", i+1, row["clause"])
		}
		section, err := strconv.Atoi(row["section"])
		if err != nil {
			return nil, fmt.Errorf("row %d: section %q", i+1, row["section"])
		}
		out = append(out, structureRow{
			part:    part,
			clause:  clause,
			section: section,
			titles: Titles{
				Part:    row["part title"],
				Clause:  row["clause title"],
				Section: row["section title"],
			},
		})
	}
	return out, nil
}

// readCSV reads a CSV file into one map per row, keyed by lowercased
// header name.
func readCSV(path string) ([]map[string]string, error) {
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

	var rows []map[string]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
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
