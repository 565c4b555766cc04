package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON writes an ensemble to a JSON file.
func WriteJSON(e *Ensemble, filename string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// ReadJSON reads an ensemble from a JSON file.
func ReadJSON(filename string) (*Ensemble, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return &e, nil
}

// ToJSON converts an ensemble to a JSON string.
func ToJSON(e *Ensemble) (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON parses an ensemble from a JSON string.
func FromJSON(jsonStr string) (*Ensemble, error) {
	var e Ensemble
	if err := json.Unmarshal([]byte(jsonStr), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
