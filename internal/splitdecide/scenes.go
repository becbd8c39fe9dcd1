package splitdecide

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/splitreel/splitreel/internal/errors"
)

// SaveScenes persists split points to <temp>/scenes.json, so a later
// inspection or a non-resuming rerun can see exactly what the split
// decider chose without rerunning detection.
func SaveScenes(tempDir string, points []int) error {
	data, err := json.Marshal(points)
	if err != nil {
		return errors.Wrap(errors.KindJSONParse, "splitdecide: marshal scenes.json", err)
	}
	path := filepath.Join(tempDir, "scenes.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.KindIO, "splitdecide: write scenes.json", err)
	}
	return nil
}

// LoadScenes reads previously persisted split points from
// <temp>/scenes.json.
func LoadScenes(tempDir string) ([]int, error) {
	path := filepath.Join(tempDir, "scenes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindIO, "splitdecide: read scenes.json", err)
	}
	var points []int
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, errors.Wrap(errors.KindJSONParse, "splitdecide: parse scenes.json", err)
	}
	return points, nil
}
