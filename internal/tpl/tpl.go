// Package tpl binds {name} placeholders in small text templates.
package tpl

import (
	"fmt"
	"io/fs"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// Tpl is a parsed template. It is immutable and safe for concurrent use.
type Tpl struct {
	text string
}

// New wraps text as a template.
func New(text string) *Tpl {
	return &Tpl{text: text}
}

// Load reads name + ".tpl" from fsys.
func Load(fsys fs.FS, name string) (*Tpl, error) {
	data, err := fs.ReadFile(fsys, name+".tpl")
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", name, err)
	}
	return New(string(data)), nil
}

// MustLoad is Load for templates embedded at build time.
func MustLoad(fsys fs.FS, name string) *Tpl {
	t, err := Load(fsys, name)
	if err != nil {
		panic(err)
	}
	return t
}

// Bind replaces every {name} with ctx[name]. Unknown placeholders render as
// their bare name. Bound values are not scanned for placeholders.
func (t *Tpl) Bind(ctx map[string]string) string {
	return placeholder.ReplaceAllStringFunc(t.text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := ctx[name]; ok {
			return v
		}
		return name
	})
}
