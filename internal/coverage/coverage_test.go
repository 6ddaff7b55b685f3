package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "meta": {"version": "7.4.4", "format": 2},
  "files": {
    "app.py": {"summary": {"covered_lines": 10, "num_statements": 12}}
  },
  "totals": {
    "covered_lines": 42,
    "num_statements": 50,
    "percent_covered": 84.0,
    "percent_covered_display": "84",
    "missing_lines": 8,
    "excluded_lines": 0
  }
}`

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0o644))

	summary, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, summary.CoveredLines)
	assert.Equal(t, 50, summary.NumStatements)
	assert.Equal(t, 84.0, summary.PercentCovered)
	assert.Equal(t, 8, summary.MissingLines)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestReadFileNoTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"files": {}}`), 0o644))

	_, err := ReadFile(path)
	assert.ErrorContains(t, err, "no totals")
}

func TestReadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := ReadFile(path)
	assert.Error(t, err)
}
