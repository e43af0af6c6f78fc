package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders text for the terminal with the named glamour style.
// "auto" picks dark or light from the terminal background. A width of
// zero or less disables wrapping.
func Markdown(text, style string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}
