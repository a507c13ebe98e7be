package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

// snapshot is an offline export of the community data.
type snapshot struct {
	Persons   []models.Person   `json:"persons" yaml:"persons"`
	Relations []models.Relation `json:"relations" yaml:"relations"`
}

// loadSnapshot reads a snapshot file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
// Relation kinds may use their English names ("father-of"); unknown kinds
// are kept so the builder can report them.
func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	for i, rel := range snap.Relations {
		if kind, err := models.ParseRelationKind(string(rel.Kind)); err == nil {
			snap.Relations[i].Kind = kind
		}
	}
	return &snap, nil
}
