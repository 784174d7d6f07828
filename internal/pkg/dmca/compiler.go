// Package dmca renders the legal text of a takedown notice from a draft.
package dmca

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/dmca-notices/internal/domain"
)

// DefaultTemplate is used when a request does not name one.
const DefaultTemplate = "standard"

const dateLayout = "January 2, 2006"

//go:embed templates/*.tmpl
var assets embed.FS

// ErrUnknownTemplate is returned for a template name with no asset.
var ErrUnknownTemplate = fmt.Errorf("unknown notice template: %w", domain.ErrBadRequest)

// Compiler renders notice content. It is safe for concurrent use.
type Compiler struct {
	templates map[string]*template.Template
	now       func() time.Time
}

// NewCompiler parses every embedded template. now supplies the notice date;
// nil means time.Now.
func NewCompiler(now func() time.Time) (*Compiler, error) {
	if now == nil {
		now = time.Now
	}
	entries, err := assets.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read notice templates: %w", err)
	}
	c := &Compiler{templates: make(map[string]*template.Template, len(entries)), now: now}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".tmpl")
		src, err := assets.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		t, err := template.New(name).Option("missingkey=zero").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		c.templates[name] = t
	}
	return c, nil
}

// Templates lists the available template names in sorted order.
func (c *Compiler) Templates() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Compile merges the submitter's name and email (and today's date) into a copy
// of form, keeping any keys form already has, and renders the named template.
func (c *Compiler) Compile(name string, form domain.Draft, user domain.User) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	t, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownTemplate)
	}

	data := form.Clone()
	data.Fill(domain.FieldName, user.Name)
	data.Fill(domain.FieldEmail, user.Email)
	data.Fill(domain.FieldDate, c.now().Format(dateLayout))

	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]string(data)); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
