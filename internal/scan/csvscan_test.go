package scan

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocHarvester/internal/keyword"
	"DocHarvester/internal/manifest"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func newScanner(keywords ...string) *Scanner {
	return New(keyword.NewMatcher(keywords), nil)
}

func TestScanFileAnnotatesColumns(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "Project Id,Title,Description\n"+
		"P1,Dairy Development,Support for cattle and dairy farmers\n"+
		"P2,Highway Upgrade,Road resurfacing works\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	scanner := newScanner("cattle", "dairy")
	stats, err := scanner.ScanFile(input, output, []string{"Title", "Description"})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.RowsWithMatches)
	assert.Equal(t, 1, stats.ByKeyword["cattle"])
	assert.Equal(t, 1, stats.ByKeyword["dairy"])

	rows := readCSV(t, output)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"Project Id", "Title", "Description",
		"Keywords Found in Title", "Keywords Found in Description",
		AnyColumnHeader,
	}, rows[0])

	assert.Equal(t, "dairy", rows[1][3])
	assert.Equal(t, "cattle; dairy", rows[1][4])
	assert.Equal(t, "dairy; cattle", rows[1][5], "union preserves first-seen order across columns")
	assert.Equal(t, "", rows[2][5])
}

func TestScanFileAccentAndSeparatorInsensitive(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "Title\nPrograma de ganadería sostenible\nAgro-pastoral development\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	scanner := newScanner("ganaderia", "agro pastoral")
	stats, err := scanner.ScanFile(input, output, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.RowsWithMatches)
	rows := readCSV(t, output)
	assert.Equal(t, "ganaderia", rows[1][2])
	assert.Equal(t, "agro pastoral", rows[2][2])
}

func TestScanFileWholeWordsOnly(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "Title\nCattleya orchid conservation\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	stats, err := newScanner("cattle").ScanFile(input, output, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.RowsWithMatches)
}

func TestScanFileEmptyColumnsScansEverything(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "A,B\nnothing here,goat rearing\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	stats, err := newScanner("goat").ScanFile(input, output, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RowsWithMatches)

	rows := readCSV(t, output)
	assert.Equal(t, []string{"A", "B", "Keywords Found in A", "Keywords Found in B", AnyColumnHeader}, rows[0])
}

func TestScanFileMissingColumnIsInputFormatError(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "Title\nsomething\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	_, err := newScanner("goat").ScanFile(input, output, []string{"Description"})
	var formatErr *manifest.InputFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, []string{"Description"}, formatErr.Missing)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output on input error")
}

func TestScanFileToleratesBOMAndRaggedRows(t *testing.T) {
	t.Parallel()

	input := writeCSV(t, "\xEF\xBB\xBFTitle,Notes\nsheep farming\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	stats, err := newScanner("sheep").ScanFile(input, output, []string{"Title", "Notes"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RowsWithMatches)

	rows := readCSV(t, output)
	require.Len(t, rows, 2)
	assert.Equal(t, "sheep", rows[1][2], "short rows are padded before annotation")
}
