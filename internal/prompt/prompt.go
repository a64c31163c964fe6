// Package prompt renders the analysis prompts from named text templates.
//
// Templates are loaded once at startup into a read-only Registry; a missing or
// malformed template is a startup error.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"
)

// Template names and their placeholders.
const (
	Analysis    = "analysis"
	AnalysisSub = "analysis_sub"

	VarProblemDescription = "problem_description"
	VarCodeRepoStructure  = "code_repo_structure"
	VarFocusFeature       = "focus_feature"
	VarCodePath           = "code_path"
	VarCodeContent        = "code_content"
)

const ext = ".tmpl"

var ErrUnknownTemplate = errors.New("prompt: unknown template")

//go:embed templates/*.tmpl
var embedded embed.FS

// Parse compiles one template. Variables that are not supplied render empty.
func Parse(name, text string) (*template.Template, error) {
	tpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt: parse %s: %w", name, err)
	}
	return tpl, nil
}

// Render fills the template with vars and trims the result.
func Render(tpl *template.Template, vars map[string]string) (string, error) {
	if tpl == nil {
		return "", ErrUnknownTemplate
	}
	if vars == nil {
		vars = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Registry is the immutable set of templates used by the service.
type Registry struct {
	templates map[string]*template.Template
}

// Required lists the templates every registry must provide.
var Required = []string{Analysis, AnalysisSub}

// Load reads and compiles every required template from fsys.
func Load(fsys fs.FS) (*Registry, error) {
	r := &Registry{templates: make(map[string]*template.Template, len(Required))}
	for _, name := range Required {
		b, err := fs.ReadFile(fsys, name+ext)
		if err != nil {
			return nil, fmt.Errorf("prompt: load %s: %w", name, err)
		}
		tpl, err := Parse(name, string(b))
		if err != nil {
			return nil, err
		}
		r.templates[name] = tpl
	}
	return r, nil
}

// LoadDefault loads templates from dir, or the embedded set when dir is empty.
func LoadDefault(dir string) (*Registry, error) {
	if strings.TrimSpace(dir) != "" {
		return Load(os.DirFS(dir))
	}
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Render renders the named template.
func (r *Registry) Render(name string, vars map[string]string) (string, error) {
	if r == nil {
		return "", ErrUnknownTemplate
	}
	tpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return Render(tpl, vars)
}
