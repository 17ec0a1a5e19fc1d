package scan

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"DocHarvester/internal/keyword"
	"DocHarvester/internal/manifest"
)

// AnyColumnHeader names the union column appended after the per-column
// annotations.
const AnyColumnHeader = "Keywords Found (Any Column)"

// Stats summarizes one scan pass.
type Stats struct {
	Rows            int
	RowsWithMatches int
	ByKeyword       map[string]int
}

// Scanner annotates a CSV table with keyword matches. Each scanned column
// gains a "Keywords Found in <column>" companion and every row gets the
// distinct union across columns.
type Scanner struct {
	matcher *keyword.Matcher
	logger  *slog.Logger
}

// New builds a scanner over a compiled matcher.
func New(matcher *keyword.Matcher, logger *slog.Logger) *Scanner {
	return &Scanner{matcher: matcher, logger: logger}
}

// ScanFile reads inputPath, scans the named columns (all columns when the
// list is empty), and writes the annotated table to outputPath. The input
// file is never modified.
func (s *Scanner) ScanFile(inputPath, outputPath string, columns []string) (Stats, error) {
	stats := Stats{ByKeyword: map[string]int{}}

	header, rows, err := readTable(inputPath)
	if err != nil {
		return stats, err
	}

	targets, err := resolveColumns(inputPath, header, columns)
	if err != nil {
		return stats, err
	}

	outHeader := append([]string{}, header...)
	for _, t := range targets {
		outHeader = append(outHeader, "Keywords Found in "+header[t])
	}
	outHeader = append(outHeader, AnyColumnHeader)

	outRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		stats.Rows++

		perColumn := make([][]string, len(targets))
		for i, t := range targets {
			perColumn[i] = s.matcher.Match(cell(row, t))
		}
		union := keyword.Union(perColumn...)

		outRow := append([]string{}, row...)
		for len(outRow) < len(header) {
			outRow = append(outRow, "")
		}
		for _, matches := range perColumn {
			outRow = append(outRow, strings.Join(matches, "; "))
		}
		outRow = append(outRow, strings.Join(union, "; "))
		outRows = append(outRows, outRow)

		if len(union) > 0 {
			stats.RowsWithMatches++
			for _, kw := range union {
				stats.ByKeyword[kw]++
			}
		}
	}

	if err := writeTable(outputPath, outHeader, outRows); err != nil {
		return stats, err
	}

	if s.logger != nil {
		s.logger.Info("scan complete",
			"input", inputPath,
			"output", outputPath,
			"rows", stats.Rows,
			"rows_with_matches", stats.RowsWithMatches)
	}
	return stats, nil
}

// resolveColumns maps requested column names to header indexes. An empty
// request scans every column. A name absent from the header aborts the run
// the same way a malformed project table does.
func resolveColumns(path string, header []string, columns []string) ([]int, error) {
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	if len(columns) == 0 {
		targets := make([]int, len(header))
		for i := range header {
			targets[i] = i
		}
		return targets, nil
	}

	var targets []int
	var missing []string
	for _, name := range columns {
		i, ok := index[strings.TrimSpace(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		targets = append(targets, i)
	}
	if len(missing) > 0 {
		return nil, &manifest.InputFormatError{Path: path, Missing: missing}
	}
	return targets, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open scan input: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, &manifest.InputFormatError{Path: path, Reason: fmt.Sprintf("cannot read header: %v", err)}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &manifest.InputFormatError{Path: path, Reason: fmt.Sprintf("malformed row: %v", err)}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scan output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scan output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write scan header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write scan row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush scan output: %w", err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
