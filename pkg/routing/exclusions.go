package routing

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	DefaultExcludedPrefixes   = []string{"/_next/static", "/_next/image", "/favicon.ico", "/static/"}
	DefaultExcludedExtensions = []string{".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// Exclusions decides which request paths bypass session handling and request logging.
type Exclusions struct {
	prefixes   []string
	extensions map[string]struct{}
}

type exclusionsFile struct {
	Version    int      `yaml:"version"`
	Prefixes   []string `yaml:"prefixes"`
	Extensions []string `yaml:"extensions"`
}

func NewExclusions(prefixes, extensions []string) *Exclusions {
	e := &Exclusions{extensions: make(map[string]struct{}, len(extensions))}
	return e.With(prefixes...).WithExtensions(extensions...)
}

// DefaultExclusions covers static assets, image optimization and the favicon.
func DefaultExclusions() *Exclusions {
	return NewExclusions(DefaultExcludedPrefixes, DefaultExcludedExtensions)
}

func (e *Exclusions) With(prefixes ...string) *Exclusions {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			e.prefixes = append(e.prefixes, p)
		}
	}
	return e
}

func (e *Exclusions) WithExtensions(extensions ...string) *Exclusions {
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		e.extensions[ext] = struct{}{}
	}
	return e
}

func (e *Exclusions) Excluded(p string) bool {
	for _, prefix := range e.prefixes {
		if HasPathPrefixOnBoundary(p, prefix) {
			return true
		}
	}
	_, ok := e.extensions[strings.ToLower(path.Ext(p))]
	return ok
}

// LoadExclusions extends the defaults with the rules in the YAML file at filePath.
func LoadExclusions(filePath string) (*Exclusions, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var file exclusionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if file.Version != 1 {
		return nil, fmt.Errorf("unsupported exclusions version: %d", file.Version)
	}
	for i, p := range file.Prefixes {
		if !strings.HasPrefix(strings.TrimSpace(p), "/") {
			return nil, fmt.Errorf("exclusions prefix[%d]: must start with '/': %q", i, p)
		}
	}
	return DefaultExclusions().With(file.Prefixes...).WithExtensions(file.Extensions...), nil
}
