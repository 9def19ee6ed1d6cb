package knowledge

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Annex table captions carry the table's position, e.g.
// "Part 6 Table 3: Methods for notations".
var captionRE = regexp.MustCompile(`Part\s+(\d+)\s+Table\s+(\d+)\s*[:-]\s*(.*)`)

func loadTablesHTMLFile(path string) ([]TableRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTablesHTML(f)
}

// ParseTablesHTML extracts method tables from an HTML annex document.
// Each <table> needs a caption matching "Part N Table M: Title"; its data
// rows are read as Row, Method, ASIL A through ASIL D cells. Tables
// without a matching caption are ignored.
func ParseTablesHTML(r io.Reader) ([]TableRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var out []TableRow
	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || node.Data != "table" {
			continue
		}
		rows, err := parseTableNode(node)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func parseTableNode(table *html.Node) ([]TableRow, error) {
	var caption string
	for node := range table.Descendants() {
		if node.Type == html.ElementNode && node.Data == "caption" {
			caption = nodeText(node)
			break
		}
	}
	m := captionRE.FindStringSubmatch(caption)
	if m == nil {
		return nil, nil
	}
	part, _ := strconv.Atoi(m[1])
	number, _ := strconv.Atoi(m[2])
	title := strings.TrimSpace(m[3])

	var out []TableRow
	for node := range table.Descendants() {
		if node.Type != html.ElementNode || node.Data != "tr" {
			continue
		}
		cells := rowCells(node)
		if len(cells) == 0 {
			continue
		}
		row := TableRow{Part: part, Table: number, Title: title}
		fields := []*string{&row.Row, &row.Method, &row.ASILA, &row.ASILB, &row.ASILC, &row.ASILD}
		for i, cell := range cells {
			if i >= len(fields) {
				break
			}
			*fields[i] = cell
		}
		out = append(out, row)
	}
	return out, nil
}

// rowCells returns the trimmed text of a row's <td> cells. Header rows
// (<th> cells) yield nothing.
func rowCells(tr *html.Node) []string {
	var cells []string
	for node := range tr.ChildNodes() {
		if node.Type != html.ElementNode || node.Data != "td" {
			continue
		}
		cells = append(cells, nodeText(node))
	}
	return cells
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	for node := range n.Descendants() {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}
