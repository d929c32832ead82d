package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Minimal color palette
var (
	DimColor    = lipgloss.Color("#6c6c6c")
	AccentColor = lipgloss.Color("#7aa2f7")
	ErrorColor  = lipgloss.Color("#f7768e")
	OKColor     = lipgloss.Color("#9ece6a")
	WarnColor   = lipgloss.Color("#e0af68")
)

var (
	nameStyle   = lipgloss.NewStyle().Foreground(AccentColor)
	dimStyle    = lipgloss.NewStyle().Foreground(DimColor)
	okStyle     = lipgloss.NewStyle().Foreground(OKColor).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(WarnColor).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	methodStyle = lipgloss.NewStyle().Bold(true).Width(7)
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// writeStructured prints v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toYAMLValue(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown output format %q", storage.ErrValidation, format)
	}
}

// toYAMLValue round-trips v through JSON so yaml output follows the json
// field names and custom marshalers.
func toYAMLValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// renderNames prints a plain listing, one name per line.
func renderNames(w io.Writer, title string, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no "+title+" found"))
		return
	}
	for _, name := range names {
		fmt.Fprintln(w, nameStyle.Render(name))
	}
}

func renderEndpoints(w io.Writer, refs []storage.EndpointRef) {
	if len(refs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no endpoints found"))
		return
	}
	for _, ref := range refs {
		name := ref.Name
		if len(ref.Folder) > 0 {
			name = dimStyle.Render(strings.Join(ref.Folder, " / ")+" / ") + nameStyle.Render(ref.Name)
		} else {
			name = nameStyle.Render(name)
		}
		fmt.Fprintf(w, "%s %s  %s\n", methodStyle.Render(ref.Method), name, dimStyle.Render(ref.URL))
	}
}

func renderVariables(w io.Writer, env *storage.Environment) {
	fmt.Fprintln(w, nameStyle.Render(env.Name))
	if len(env.Values) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no variables"))
		return
	}
	for _, v := range env.Values {
		line := fmt.Sprintf("  %s = %s", v.Key, v.Value)
		if !v.Enabled {
			line = dimStyle.Render(line + " (disabled)")
		}
		fmt.Fprintln(w, line)
	}
}

func statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return errorStyle
	case code >= 400:
		return warnStyle
	default:
		return okStyle
	}
}

// responseMarkdown lays out a run result as markdown for glamour.
func responseMarkdown(result *core.RunResult) string {
	var sb strings.Builder
	resp := result.Response

	fmt.Fprintf(&sb, "**%s** `%s`\n\n", result.Request.Method, result.Request.URL)
	if len(resp.Headers) > 0 {
		sb.WriteString("| Header | Value |\n|---|---|\n")
		for _, h := range resp.Headers {
			fmt.Fprintf(&sb, "| %s | %s |\n", h.Key, strings.ReplaceAll(h.Value, "|", "\\|"))
		}
		sb.WriteString("\n")
	}

	if resp.Body != "" {
		body, lang := prettyBody(resp.Body)
		fmt.Fprintf(&sb, "```%s\n%s\n```\n", lang, body)
	}
	return sb.String()
}

// prettyBody indents JSON bodies and tags the fence language.
func prettyBody(body string) (string, string) {
	var js any
	if err := json.Unmarshal([]byte(body), &js); err != nil {
		return body, ""
	}
	pretty, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return body, ""
	}
	return string(pretty), "json"
}

// renderResponse prints the status line and the rendered request/response
// details. It falls back to plain markdown if glamour cannot render.
func renderResponse(w io.Writer, result *core.RunResult) {
	resp := result.Response
	status := fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusText)
	fmt.Fprintf(w, "%s %s\n", statusStyle(resp.StatusCode).Render(status), dimStyle.Render(fmt.Sprintf("(%dms)", resp.ElapsedMs)))

	md := responseMarkdown(result)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprintln(w, md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprintln(w, md)
		return
	}
	fmt.Fprintln(w, strings.TrimRight(out, "\n"))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render("warning:")+" "+fmt.Sprintf(format, args...))
}
