package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// weightsFile accepts either a bare name=weight table or one nested under "weights".
type weightsFile struct {
	Weights map[string]float64 `toml:"weights" yaml:"weights"`
}

// LoadWeights reads a weight table from a .toml, .yaml or .yml file. The
// table may sit at the top level or under a "weights" key.
func LoadWeights(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return decodeTOMLWeights(data)
	case ".yaml", ".yml":
		return decodeYAMLWeights(data)
	default:
		return nil, fmt.Errorf("unsupported weights format %q (use .toml, .yaml or .yml)", ext)
	}
}

func decodeTOMLWeights(data []byte) (map[string]float64, error) {
	var nested weightsFile
	if _, err := toml.Decode(string(data), &nested); err == nil && len(nested.Weights) > 0 {
		return nested.Weights, nil
	}
	flat := map[string]float64{}
	if _, err := toml.Decode(string(data), &flat); err != nil {
		return nil, fmt.Errorf("failed to decode TOML weights: %w", err)
	}
	return flat, nil
}

func decodeYAMLWeights(data []byte) (map[string]float64, error) {
	var nested weightsFile
	if err := yaml.Unmarshal(data, &nested); err == nil && len(nested.Weights) > 0 {
		return nested.Weights, nil
	}
	flat := map[string]float64{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&flat); err != nil {
		return nil, fmt.Errorf("failed to decode YAML weights: %w", err)
	}
	return flat, nil
}
