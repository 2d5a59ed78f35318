package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelPricing holds USD prices per million tokens.
type ModelPricing struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// Table maps judge model names to prices.
type Table struct {
	Models map[string]ModelPricing
}

// Load reads a YAML mapping of model name to {input, output}.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var models map[string]ModelPricing
	if err := yaml.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	return &Table{Models: models}, nil
}

// Lookup finds the price for model. Dated or suffixed variants such as
// "gemini-2.5-pro-preview-06-05" fall back to the longest listed prefix.
func (t *Table) Lookup(model string) (ModelPricing, bool) {
	if t == nil || t.Models == nil {
		return ModelPricing{}, false
	}
	if p, ok := t.Models[model]; ok {
		return p, true
	}
	best := ""
	for name := range t.Models {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return t.Models[best], true
}

// Cost returns the USD cost of the given token counts, or 0 for unknown models.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1e6)*p.Input + (float64(outputTokens)/1e6)*p.Output
}
