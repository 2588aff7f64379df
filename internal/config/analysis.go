package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"newsticker/internal/news"
)

//go:embed default_analysis.yaml
var defaultAnalysisFS embed.FS

const DefaultAnalysis = "mcp"

// Analysis is a market map: the companies whose news feeds one ticker.
type Analysis struct {
	Type      string         `yaml:"type"`
	Title     string         `yaml:"title"`
	Companies []news.Company `yaml:"companies"`
}

func ParseAnalysis(data []byte) (Analysis, error) {
	var a Analysis
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Analysis{}, fmt.Errorf("parsing analysis: %w", err)
	}
	if err := a.normalize(); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func (a *Analysis) normalize() error {
	a.Type = strings.TrimSpace(a.Type)
	if a.Type == "" {
		return fmt.Errorf("analysis: type is required")
	}
	if strings.ContainsAny(a.Type, " /\\") {
		return fmt.Errorf("analysis %q: type must not contain spaces or slashes", a.Type)
	}
	if a.Title == "" {
		a.Title = a.Type
	}
	if len(a.Companies) == 0 {
		return fmt.Errorf("analysis %q: at least one company is required", a.Type)
	}
	for i, c := range a.Companies {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("analysis %q: company %d: name is required", a.Type, i)
		}
		q, err := news.ParseQuadrant(string(c.Quadrant))
		if err != nil {
			return fmt.Errorf("analysis %q: company %q: %w", a.Type, c.Name, err)
		}
		a.Companies[i].Name = strings.TrimSpace(c.Name)
		a.Companies[i].Quadrant = q
	}
	return nil
}

// LoadAnalyses returns the embedded default plus every *.yaml / *.yml file
// in dir, keyed by type. Files override the embedded entry of the same type.
func LoadAnalyses(dir string) (map[string]Analysis, error) {
	out := map[string]Analysis{}

	data, err := defaultAnalysisFS.ReadFile("default_analysis.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded analysis: %w", err)
	}
	def, err := ParseAnalysis(data)
	if err != nil {
		return nil, fmt.Errorf("embedded analysis: %w", err)
	}
	out[def.Type] = def

	if dir == "" {
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("reading analyses dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		a, err := ParseAnalysis(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[a.Type] = a
	}
	return out, nil
}

func AnalysisTypes(m map[string]Analysis) []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
