package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"brandpulse/pkg/errors"
)

//go:embed assets/**/*.tmpl
var embeddedFS embed.FS

const ext = ".tmpl"

// Funcs are available to every template in the registry.
var Funcs = template.FuncMap{
	"pct":    func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"score":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"ago":    humanize.Time,
	"comma":  func(v int) string { return humanize.Comma(int64(v)) },
	"plural": english.PluralWord,
	"md":     EscapeMarkdown,
	"join":   strings.Join,
	"upper":  strings.ToUpper,
	"title": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// Template is one parsed template. ID is its slash path without extension,
// e.g. "responses/complaint".
type Template struct {
	ID     string
	Source string // which layer it came from
	parsed *template.Template
}

// Render executes the template. Missing keys are errors.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render template %s", t.ID)
	}
	return buf.String(), nil
}

// Layer is a named template filesystem
type Layer struct {
	Name string
	FS   fs.FS
}

// Registry resolves templates by ID. It is built from layers; a template
// in a later layer replaces the one with the same ID in an earlier layer,
// which lets operators override the built-in reply and alert wording.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry parses every *.tmpl file in the layers, in order
func NewRegistry(layers ...Layer) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template)}
	for _, l := range layers {
		if err := r.load(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewRegistryFromDir is a registry over a single directory on disk
func NewRegistryFromDir(dir string) (*Registry, error) {
	return NewRegistry(Layer{Name: dir, FS: os.DirFS(dir)})
}

// WithOverrides returns the embedded templates shadowed by dir. An empty
// dir returns the embedded registry.
func WithOverrides(dir string) (*Registry, error) {
	if dir == "" {
		return Get(), nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "template override dir %q is not a directory", dir)
	}
	return NewRegistry(embeddedLayer(), Layer{Name: dir, FS: os.DirFS(dir)})
}

// Get returns the registry of embedded templates. It panics if they do not
// parse, which is a build defect.
func Get() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = NewRegistry(embeddedLayer())
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultRegistry
}

// GetTemplate returns the template with id
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "template %s", id)
	}
	return tmpl, nil
}

// Render executes the template with id
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, err := r.GetTemplate(id)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}

// List returns the known template IDs, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) load(l Layer) error {
	return fs.WalkDir(l.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ext {
			return err
		}

		content, err := fs.ReadFile(l.FS, p)
		if err != nil {
			return errors.Wrapf(err, "read template %s/%s", l.Name, p)
		}

		id := strings.TrimSuffix(p, ext)
		parsed, err := template.New(id).Funcs(Funcs).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return errors.Wrapf(err, "parse template %s/%s", l.Name, p)
		}

		r.mu.Lock()
		r.templates[id] = &Template{ID: id, Source: l.Name, parsed: parsed}
		r.mu.Unlock()
		return nil
	})
}

func embeddedLayer() Layer {
	sub, err := fs.Sub(embeddedFS, "assets")
	if err != nil {
		panic(err)
	}
	return Layer{Name: "embedded", FS: sub}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)
