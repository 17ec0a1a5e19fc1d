package manifest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"DocHarvester/internal/domain"
)

// Columns names the required semantic fields inside the input table.
type Columns struct {
	ID      string
	Country string
	Title   string
}

// DefaultColumns matches the export format of the institution project
// tables this tool is usually fed.
func DefaultColumns() Columns {
	return Columns{ID: "Project Id", Country: "Country", Title: "Project Name"}
}

// InputFormatError reports a run-level input violation: the whole batch
// aborts before any processing.
type InputFormatError struct {
	Path    string
	Missing []string
	Reason  string
}

func (e *InputFormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("input %s: missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("input %s: %s", e.Path, e.Reason)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadProjects loads the input table. Rows with an empty project id are
// skipped; all non-required columns ride along in Extra.
func ReadProjects(path string, cols Columns) ([]domain.ProjectRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open projects file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(stripBOM(f))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &InputFormatError{Path: path, Reason: fmt.Sprintf("cannot read header: %v", err)}
	}

	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, required := range []string{cols.ID, cols.Country, cols.Title} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &InputFormatError{Path: path, Missing: missing}
	}

	var projects []domain.ProjectRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &InputFormatError{Path: path, Reason: fmt.Sprintf("malformed row: %v", err)}
		}

		record := domain.ProjectRecord{
			ID:      cell(row, index[cols.ID]),
			Country: cell(row, index[cols.Country]),
			Title:   cell(row, index[cols.Title]),
		}
		if record.ID == "" {
			continue
		}

		for name, i := range index {
			if name == cols.ID || name == cols.Country || name == cols.Title {
				continue
			}
			value := cell(row, i)
			if value == "" {
				continue
			}
			if record.Extra == nil {
				record.Extra = map[string]string{}
			}
			record.Extra[name] = value
		}

		projects = append(projects, record)
	}

	if len(projects) == 0 {
		return nil, &InputFormatError{Path: path, Reason: "no projects found"}
	}
	return projects, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	lead, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
