// Package msgcat holds the bot's user-visible strings as text/template snippets keyed by
// dotted paths ("help.查卡", "reply.no_rooms").
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.zh.yaml
var embedded []byte

// Catalog is immutable after New and safe for concurrent use.
type Catalog struct {
	tpl map[string]*template.Template
}

// New loads the embedded messages, then every *.yaml/*.yml in overrideDir (sorted by name).
// A key may be overridden once; two override files defining it is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{tpl: make(map[string]*template.Template)}
	if err := c.apply("embedded", embedded); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) == "" {
		return c, nil
	}
	files, err := yamlFiles(overrideDir)
	if err != nil {
		return nil, err
	}
	owner := make(map[string]string)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(overrideDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, ok := owner[k]; ok {
				return nil, fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
		}
		if err := c.compile(name, flat); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustDefault returns the embedded catalog and panics if it does not parse.
func MustDefault() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

func (c *Catalog) apply(source string, raw []byte) error {
	flat, err := flatten(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	return c.compile(source, flat)
}

// compile parses every template up front so a broken override fails at startup.
func (c *Catalog) compile(source string, flat map[string]string) error {
	for k, text := range flat {
		if strings.TrimSpace(text) == "" {
			delete(c.tpl, k)
			continue
		}
		t, err := template.New(k).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%s: template %s: %w", source, k, err)
		}
		c.tpl[k] = t
	}
	return nil
}

func flatten(raw []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := walk(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := walk(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return fmt.Errorf("string value without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Has reports whether key has a non-empty template.
func (c *Catalog) Has(key string) bool {
	_, ok := c.tpl[strings.TrimSpace(key)]
	return ok
}

// Render executes the template under key. Fields missing from data are an error.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.tpl[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text renders key and falls back to the key itself on error.
func (c *Catalog) Text(key string, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}

// HelpKey is the catalog key of a trigger's help text.
func HelpKey(trigger string) string { return "help." + trigger }
