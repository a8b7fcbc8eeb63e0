package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Identity is a node's stable mesh identity. The NodeID is generated once
// and reused across restarts.
type Identity struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label"`
}

// LoadOrGenerate retrieves the existing identity from path or generates and
// persists a new one. A non-empty label overrides the stored label.
func LoadOrGenerate(path, label string) (Identity, error) {
	if data, err := os.ReadFile(path); err == nil {
		var id Identity
		if err := json.Unmarshal(data, &id); err != nil {
			return Identity{}, fmt.Errorf("parse identity file: %w", err)
		}
		if id.NodeID != "" {
			if label != "" && label != id.Label {
				id.Label = label
				if err := save(path, id); err != nil {
					return Identity{}, err
				}
			}
			return id, nil
		}
	}

	id := Identity{NodeID: uuid.NewString(), Label: label}
	if err := save(path, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func save(path string, id Identity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}
