// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bureau-foundation/staging/lib/validate"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("report: unknown format")

// Format selects a renderer.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	HTML     Format = "html"
	JSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{Text, Markdown, HTML, JSON}

// ParseFormat accepts a format name; "md" is an alias for markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "html":
		return HTML, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w %q (want one of %v)", ErrUnknownFormat, name, Formats)
}

// Extension returns the file extension for reports in this format.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case HTML:
		return ".html"
	case JSON:
		return ".json"
	}
	return ".txt"
}

// Options tunes rendering.
type Options struct {
	// Color enables ANSI styling in Text output.
	Color bool

	// Title heads Markdown and HTML output. Empty means
	// "Validation report for <root name>".
	Title string
}

// Write renders result to w in format.
func Write(w io.Writer, result *validate.Result, format Format, options Options) error {
	switch format {
	case Text, "":
		return writeText(w, result, options)
	case Markdown:
		_, err := io.WriteString(w, markdown(result, options))
		return err
	case HTML:
		return writeHTML(w, result, options)
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func title(result *validate.Result, options Options) string {
	if options.Title != "" {
		return options.Title
	}
	return "Validation report for " + result.Name
}

func summary(result *validate.Result) string {
	infos, warnings, errs := result.Counts()
	verdict := "VALID"
	if !result.IsValid() {
		verdict = "INVALID"
	}
	return fmt.Sprintf("%s: %d errors, %d warnings, %d passed", verdict, errs, warnings, infos)
}

// Terminal styles. Colors are ANSI 256 codes.
type styles struct {
	heading lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	faint   lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return styles{
		heading: renderer.NewStyle().Bold(true),
		info:    renderer.NewStyle().Foreground(lipgloss.Color("34")),
		warning: renderer.NewStyle().Foreground(lipgloss.Color("214")),
		err:     renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		faint:   renderer.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

func writeText(w io.Writer, result *validate.Result, options Options) error {
	styles := newStyles(w, options.Color)
	var builder strings.Builder
	var walk func(node *validate.Result, depth int)
	walk = func(node *validate.Result, depth int) {
		indent := strings.Repeat("  ", depth)
		builder.WriteString(indent + styles.heading.Render(node.Name) + "\n")
		for _, message := range node.Errors {
			builder.WriteString(indent + "  " + styles.err.Render("✗ "+message) + "\n")
		}
		for _, message := range node.Warnings {
			builder.WriteString(indent + "  " + styles.warning.Render("! "+message) + "\n")
		}
		for _, message := range node.Infos {
			builder.WriteString(indent + "  " + styles.info.Render("✓ "+message) + "\n")
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	walk(result, 0)

	verdict := styles.info
	if !result.IsValid() {
		verdict = styles.err
	}
	builder.WriteString("\n" + verdict.Render(summary(result)) + "\n")
	_, err := io.WriteString(w, builder.String())
	return err
}

func markdown(result *validate.Result, options Options) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "# %s\n\n**%s**\n", escapeMarkdown(title(result, options)), summary(result))
	var walk func(node *validate.Result, depth int)
	walk = func(node *validate.Result, depth int) {
		level := min(depth+1, 6)
		fmt.Fprintf(&builder, "\n%s `%s`\n\n", strings.Repeat("#", level), strings.ReplaceAll(node.Name, "`", "'"))
		for _, message := range node.Errors {
			fmt.Fprintf(&builder, "- ❌ **error:** %s\n", escapeMarkdown(message))
		}
		for _, message := range node.Warnings {
			fmt.Fprintf(&builder, "- ⚠️ warning: %s\n", escapeMarkdown(message))
		}
		for _, message := range node.Infos {
			fmt.Fprintf(&builder, "- ✅ %s\n", escapeMarkdown(message))
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	for _, child := range result.Children {
		walk(child, 1)
	}
	if len(result.Errors)+len(result.Warnings)+len(result.Infos) > 0 {
		walk(&validate.Result{Name: result.Name, Infos: result.Infos, Warnings: result.Warnings, Errors: result.Errors}, 1)
	}
	return builder.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

var (
	converterInstance goldmark.Markdown
	converterOnce     sync.Once
)

func converter() goldmark.Markdown {
	converterOnce.Do(func() {
		converterInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return converterInstance
}

func writeHTML(w io.Writer, result *validate.Result, options Options) error {
	var body bytes.Buffer
	if err := converter().Convert([]byte(markdown(result, options)), &body); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title(result, options)), body.String())
	return err
}
