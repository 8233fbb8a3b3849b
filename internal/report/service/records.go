package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"planform/internal/rag/fanout"
)

// loadRecords reads every subsection record written by the retrieval fan-out
// for one document folder, ordered by outline position.
func loadRecords(resultsDir string) ([]*fanout.SubsectionRecord, error) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read retrieval results %s: %w", resultsDir, err)
	}

	var records []*fanout.SubsectionRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, "_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(resultsDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read record %s: %w", name, err)
		}
		record := &fanout.SubsectionRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to parse record %s: %w", name, err)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no retrieval records in %s", resultsDir)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Order < records[j].Order })
	return records, nil
}
