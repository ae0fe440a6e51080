package report

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const embeddedTemplateName = "session-report.md.go.tmpl"

//go:embed templates/session-report.md.go.tmpl
var fallbackSessionReportTemplate string

// parseTemplate reads templatePath when it exists and falls back to the embedded template
func parseTemplate(templatePath string, logger *slog.Logger) (*template.Template, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
		"add": func(a, b int) int {
			return a + b
		},
	}

	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(templatePath)).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			logger.Warn("failed to parse a templatePath",
				slog.String("templatePath", templatePath),
				slog.Any("error", err),
			)
		}
	}

	tmpl, err := template.New(embeddedTemplateName).
		Funcs(funcMap).
		Parse(fallbackSessionReportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// RenderMarkdown writes the report as markdown
func (w *Writer) RenderMarkdown(output io.Writer, report Report) error {
	tmpl, err := parseTemplate(w.templatePath, w.logger)
	if err != nil {
		return fmt.Errorf("parseTemplate() > %w", err)
	}
	if err := tmpl.Execute(output, report); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}
