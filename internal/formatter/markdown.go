package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/boshu2/hookfire/internal/hook"
)

// MarkdownFormatter renders a hooks config as a documentation page, one
// section per hook, suitable for dropping into a project README or runbook.
type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the hook inventory as markdown.
func (mf *MarkdownFormatter) Format(w io.Writer, project string, hooks []hook.Definition) error {
	data := mf.buildTemplateData(project, hooks)

	tmpl, err := template.New("hooks").Funcs(mf.templateFuncs()).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return tmpl.Execute(w, data)
}

type templateData struct {
	Project string
	Count   int
	Hooks   []hookDoc
}

// hookDoc is one hook flattened for the template.
type hookDoc struct {
	Name     string
	Events   []string
	Method   string
	Target   string
	Timeout  int
	Shell    string
	WorkDir  string
	FailMode string
	Env      map[string]string
	Disabled bool
}

func (mf *MarkdownFormatter) buildTemplateData(project string, hooks []hook.Definition) *templateData {
	data := &templateData{
		Project: project,
		Count:   len(hooks),
	}
	for _, d := range hooks {
		data.Hooks = append(data.Hooks, flattenHook(d))
	}
	return data
}

func flattenHook(d hook.Definition) hookDoc {
	doc := hookDoc{
		Name:     d.Name,
		Timeout:  d.Timeout,
		Shell:    d.Shell,
		WorkDir:  d.WorkingDirectory,
		FailMode: d.FailMode,
		Env:      d.Env,
		Disabled: !d.Enabled,
	}
	for _, m := range d.Matchers {
		label := m.Type
		if len(m.Filters) > 0 {
			label += " (filtered)"
		}
		doc.Events = append(doc.Events, label)
	}

	method, err := d.ResolveMethod()
	if err != nil {
		doc.Method = "invalid"
		return doc
	}
	doc.Method = method.String()
	switch method {
	case hook.MethodScript:
		doc.Target = d.Script
	case hook.MethodCommand:
		doc.Target = d.Command
	case hook.MethodWebhook:
		doc.Target = d.Webhook.URL
	}
	return doc
}

func (mf *MarkdownFormatter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"code": func(s string) string {
			return "`" + s + "`"
		},
		"hasEnv": func(m map[string]string) bool {
			return len(m) > 0
		},
	}
}

const markdownTemplate = `# Hooks: {{ .Project }}

{{ .Count }} hook(s) configured.

{{- range .Hooks }}

## {{ .Name }}{{ if .Disabled }} (disabled){{ end }}

- **Events:** {{ join .Events ", " }}
- **Runs:** {{ .Method }} {{ code .Target }}
- **Timeout:** {{ .Timeout }}s
- **Shell:** {{ code .Shell }}
{{- if .WorkDir }}
- **Working directory:** {{ code .WorkDir }}
{{- end }}
{{- if .FailMode }}
- **On failure:** {{ .FailMode }}
{{- end }}
{{- if hasEnv .Env }}

| Variable | Value |
|----------|-------|
{{- range $k, $v := .Env }}
| {{ $k }} | {{ $v }} |
{{- end }}
{{- end }}
{{- end }}
`
