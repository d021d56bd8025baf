package excuse

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phrases overrides the local excuse tables
type Phrases struct {
	Starters   []string `yaml:"starters"`
	Situations []string `yaml:"situations"`
}

// DefaultPhrases returns copies of the built-in tables
func DefaultPhrases() Phrases {
	return Phrases{
		Starters:   append([]string(nil), defaultStarters...),
		Situations: append([]string(nil), defaultSituations...),
	}
}

// ParsePhrases decodes a YAML phrase file. Blank entries are dropped and a
// trailing period on a situation is removed, since Excuse adds one.
func ParsePhrases(data []byte) (Phrases, error) {
	var p Phrases
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Phrases{}, fmt.Errorf("failed to parse phrases: %w", err)
	}
	p.Starters = cleanPhrases(p.Starters, false)
	p.Situations = cleanPhrases(p.Situations, true)
	if len(p.Starters) == 0 && len(p.Situations) == 0 {
		return Phrases{}, fmt.Errorf("phrases file defines no starters or situations")
	}
	return p, nil
}

// LoadPhrases reads and parses a YAML phrase file
func LoadPhrases(path string) (Phrases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Phrases{}, fmt.Errorf("failed to read phrases file: %w", err)
	}
	return ParsePhrases(data)
}

func cleanPhrases(in []string, trimPeriod bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if trimPeriod {
			s = strings.TrimSuffix(s, ".")
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
