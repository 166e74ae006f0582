// Package report renders human readable summaries of a Pattern with
// text/template and the sprig function library.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/midicsv/midicsv"
)

// Reporter executes report templates. Template names are the file names
// the templates were loaded from, e.g. "summary.txt".
type Reporter struct {
	Template *template.Template
}

//go:embed templates/*
var templateFS embed.FS

// DefaultTemplate is the report written when no name is given.
const DefaultTemplate = "summary.txt"

// New returns a Reporter using the built-in templates.
func New() (*Reporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.*")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %v`, err)
	}
	return &Reporter{Template: tmpl}, nil
}

// NewFromTemplates returns a Reporter using every template in
// templateDirectory.
func NewFromTemplates(templateDirectory string) (*Reporter, error) {
	globPtrn := filepath.Join(templateDirectory, "*.*")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Reporter{Template: tmpl}, nil
}

// Render executes the named template over the Summary of p.
func (r *Reporter) Render(name string, p midicsv.Pattern) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	result := bytes.NewBufferString("")
	if err := r.Template.ExecuteTemplate(result, name, Summarize(p)); err != nil {
		return "", fmt.Errorf(`could not execute template "%v": %v`, name, err)
	}
	return result.String(), nil
}
