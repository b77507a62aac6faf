package domains

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/embedded"
)

// Registry holds the validated domain configurations by key
type Registry struct {
	configs map[string]*Config
}

// NewRegistry validates configs and indexes them by key
func NewRegistry(configs ...*Config) (*Registry, error) {
	r := &Registry{configs: make(map[string]*Config, len(configs))}
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.configs[c.Key]; dup {
			return nil, domain.NewInputError("key", "duplicate domain %q", c.Key)
		}
		r.configs[c.Key] = c
	}
	return r, nil
}

// LoadDefault loads the embedded configurations, then lets files in overrideDir
// replace or add domains by key. An empty overrideDir uses the embedded set only.
func LoadDefault(overrideDir string) (*Registry, error) {
	configs, err := readDir(embedded.Files, embedded.DomainsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded domain configs: %w", err)
	}

	if overrideDir != "" {
		overrides, err := readDir(os.DirFS(overrideDir), ".")
		if err != nil {
			return nil, fmt.Errorf("failed to load domain configs from %s: %w", overrideDir, err)
		}
		configs = merge(configs, overrides)
	}
	return NewRegistry(configs...)
}

// LoadFS loads every *.yaml / *.yml file in dir of fsys
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	configs, err := readDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(configs...)
}

// Parse decodes one YAML document; unknown fields are rejected
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewInputError("config", "document is empty")
		}
		return nil, domain.NewInputError("config", "%v", err)
	}
	return &c, nil
}

func readDir(fsys fs.FS, dir string) ([]*Config, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var configs []*Config
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		c, err := Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func merge(base, overrides []*Config) []*Config {
	byKey := make(map[string]int, len(base))
	out := append([]*Config(nil), base...)
	for i, c := range out {
		byKey[c.Key] = i
	}
	for _, c := range overrides {
		if i, ok := byKey[c.Key]; ok {
			out[i] = c
			continue
		}
		byKey[c.Key] = len(out)
		out = append(out, c)
	}
	return out
}

// Get returns the configuration for key or an InputError for an unsupported domain
func (r *Registry) Get(key string) (*Config, error) {
	c, ok := r.configs[key]
	if !ok {
		return nil, domain.NewInputError("domain", "unsupported domain %q", key)
	}
	return c, nil
}

// Keys lists the registered domains in sorted order
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.configs))
	for k := range r.configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every configuration ordered by key
func (r *Registry) All() []*Config {
	out := make([]*Config, 0, len(r.configs))
	for _, k := range r.Keys() {
		out = append(out, r.configs[k])
	}
	return out
}

// FirstOfKind returns the first configuration (by key) of the given kind
func (r *Registry) FirstOfKind(kind Kind) (*Config, error) {
	for _, c := range r.All() {
		if c.Kind == kind {
			return c, nil
		}
	}
	return nil, domain.NewInputError("domain", "no %s domain is configured", kind)
}
