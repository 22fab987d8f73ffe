package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

var (
	colorCyan  = lipgloss.Color("14")
	colorGreen = lipgloss.Color("82")
	colorRed   = lipgloss.Color("196")

	styleNoun     = lipgloss.NewStyle().Foreground(colorCyan)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleRejected = lipgloss.NewStyle().Foreground(colorRed)
	styleDim      = lipgloss.NewStyle().Faint(true)
	styleLabel    = lipgloss.NewStyle().Bold(true)
)

// render writes v as YAML or JSON, or calls text for the text format.
func (a *app) render(w io.Writer, v any, text func(io.Writer)) error {
	switch a.outputFormat {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		text(w)
		return nil
	}
}

func label(name string) string {
	return styleLabel.Render(fmt.Sprintf("%-12s", name+":"))
}
