// Package persona holds the product content that shapes a conversation: the
// system instruction for each persona value, the phrases that switch to the
// elevated persona, and the submission ceilings tied to each.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultCatalogue []byte

// Limits are the sliding-window submission ceilings.
type Limits struct {
	Standard int           `yaml:"standard"`
	Elevated int           `yaml:"elevated"`
	Window   time.Duration `yaml:"window"`
}

// Catalogue maps the persona flag to instruction text and rate ceilings.
type Catalogue struct {
	Name              string   `yaml:"name"`
	BaseInstruction   string   `yaml:"base_instruction"`
	ElevatedDirective string   `yaml:"elevated_directive"`
	Triggers          []string `yaml:"triggers"`
	Limits            Limits   `yaml:"limits"`
}

// Default returns the embedded catalogue.
func Default() *Catalogue {
	c, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("persona: embedded catalogue is invalid: %v", err))
	}
	return c
}

// Load reads a catalogue from path. An empty path yields the default.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalogue. Missing limits fall back to the defaults
// (10 standard, 20 elevated, 30 minute window).
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("persona: decoding catalogue: %w", err)
	}
	if strings.TrimSpace(c.BaseInstruction) == "" {
		return nil, fmt.Errorf("persona: base_instruction is empty")
	}
	if c.Limits.Standard <= 0 {
		c.Limits.Standard = 10
	}
	if c.Limits.Elevated <= 0 {
		c.Limits.Elevated = 20
	}
	if c.Limits.Window <= 0 {
		c.Limits.Window = 30 * time.Minute
	}
	for i, t := range c.Triggers {
		c.Triggers[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return &c, nil
}

// Triggered reports whether input contains one of the activation phrases,
// ignoring case.
func (c *Catalogue) Triggered(input string) bool {
	lower := strings.ToLower(input)
	for _, t := range c.Triggers {
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Instruction returns the system instruction for the given persona flag.
func (c *Catalogue) Instruction(elevated bool) string {
	if !elevated || c.ElevatedDirective == "" {
		return c.BaseInstruction
	}
	return c.BaseInstruction + "\nCRITICAL: " + strings.TrimSpace(c.ElevatedDirective)
}

// Limit returns the submission ceiling for the given persona flag.
func (c *Catalogue) Limit(elevated bool) int {
	if elevated {
		return c.Limits.Elevated
	}
	return c.Limits.Standard
}
