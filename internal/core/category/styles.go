package category

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Style is the visual theme applied to a category's recreated thumbnails.
type Style struct {
	Colors []string `yaml:"colors" json:"colors"`
	Style  string   `yaml:"style" json:"style"`
	Mood   string   `yaml:"mood" json:"mood"`
	Layout string   `yaml:"layout" json:"layout"`
}

//go:embed styles.yaml
var defaultStyles []byte

var (
	stylesMu sync.RWMutex
	styles   map[Category]Style
)

func init() {
	parsed, err := parseStyles(defaultStyles)
	if err != nil {
		panic(fmt.Errorf("embedded category styles: %w", err))
	}
	styles = parsed
}

func parseStyles(data []byte) (map[Category]Style, error) {
	raw := map[string]Style{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[Category]Style, len(raw))
	for name, st := range raw {
		c, ok := Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out[c] = st
	}
	return out, nil
}

// LoadStyles merges a YAML style file over the built-in themes.
func LoadStyles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read styles: %w", err)
	}
	parsed, err := parseStyles(data)
	if err != nil {
		return fmt.Errorf("parse styles %s: %w", path, err)
	}
	stylesMu.Lock()
	defer stylesMu.Unlock()
	for c, st := range parsed {
		styles[c] = st
	}
	return nil
}

// StyleFor returns the theme for a category name. Unknown names get the
// Local News theme.
func StyleFor(name string) Style {
	stylesMu.RLock()
	defer stylesMu.RUnlock()
	if c, ok := Parse(name); ok {
		if st, ok := styles[c]; ok {
			return st
		}
	}
	return styles[LocalNews]
}
