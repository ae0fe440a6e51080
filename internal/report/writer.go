package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the output format of a saved report
type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts md, markdown, pdf, yaml and yml
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported report format %q, must be one of md, pdf, yaml", value)
}

// Writer saves reports into a directory
type Writer struct {
	outputDirectory string
	templatePath    string
	logger          *slog.Logger
}

type WriterOption func(*Writer)

// WithTemplatePath overrides the embedded markdown template
func WithTemplatePath(templatePath string) WriterOption {
	return func(w *Writer) {
		w.templatePath = templatePath
	}
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

func NewWriter(outputDirectory string, opts ...WriterOption) *Writer {
	w := &Writer{
		outputDirectory: outputDirectory,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Save writes the report in the format and returns the path of the written file
func (w *Writer) Save(report Report, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return w.WriteMarkdown(report)
	case FormatPDF:
		markdownPath, err := w.WriteMarkdown(report)
		if err != nil {
			return "", err
		}
		pdfPath, err := ConvertMarkdownToPDF(markdownPath)
		if err != nil {
			return "", fmt.Errorf("ConvertMarkdownToPDF(%s) > %w", markdownPath, err)
		}
		return pdfPath, nil
	case FormatYAML:
		return w.WriteYAML(report)
	}
	return "", fmt.Errorf("unsupported report format %q", format)
}

// WriteMarkdown writes <session id>.md into the output directory
func (w *Writer) WriteMarkdown(report Report) (string, error) {
	outputFilename, err := w.outputPath(report, "md")
	if err != nil {
		return "", err
	}

	output, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("os.Create(%s) > %w", outputFilename, err)
	}
	defer func() {
		_ = output.Close()
	}()

	if err := w.RenderMarkdown(output, report); err != nil {
		return "", fmt.Errorf("RenderMarkdown(%s) > %w", outputFilename, err)
	}
	return outputFilename, nil
}

// WriteYAML writes <session id>.yml into the output directory
func (w *Writer) WriteYAML(report Report) (string, error) {
	outputFilename, err := w.outputPath(report, "yml")
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("yaml.Marshal() > %w", err)
	}
	if err := os.WriteFile(outputFilename, data, 0644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s) > %w", outputFilename, err)
	}
	return outputFilename, nil
}

func (w *Writer) outputPath(report Report, extension string) (string, error) {
	if err := os.MkdirAll(w.outputDirectory, 0755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", w.outputDirectory, err)
	}
	return filepath.Join(w.outputDirectory, fileName(report.SessionID)+"."+extension), nil
}

// fileName keeps session ids usable as file names
func fileName(sessionID string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(sessionID))
	if name == "" {
		return "session"
	}
	return name
}
