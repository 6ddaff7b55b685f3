// Package coverage reads the JSON summary emitted by coverage.py's
// `coverage json` command. Only the totals block is interpreted; the
// rest of the schema belongs to the coverage tool.
package coverage

import (
	"encoding/json"
	"fmt"
	"os"
)

// Summary holds the totals block of a coverage.py JSON report.
type Summary struct {
	CoveredLines   int     `json:"covered_lines"`
	NumStatements  int     `json:"num_statements"`
	PercentCovered float64 `json:"percent_covered"`
	MissingLines   int     `json:"missing_lines"`
}

type reportDocument struct {
	Totals *Summary `json:"totals"`
}

// ReadFile parses the report at path and returns its totals.
func ReadFile(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read coverage report %q: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (Summary, error) {
	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Summary{}, fmt.Errorf("parse coverage report %q: %w", path, err)
	}
	if doc.Totals == nil {
		return Summary{}, fmt.Errorf("coverage report %q has no totals", path)
	}
	return *doc.Totals, nil
}
