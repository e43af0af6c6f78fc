package task

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
)

// draftFrontmatter mirrors the YAML header of a draft file.
type draftFrontmatter struct {
	Title    string `yaml:"title"`
	Status   string `yaml:"status"`
	Priority string `yaml:"priority"`
	Due      string `yaml:"due"`
	Assignee string `yaml:"assignee"`
}

// ReadDraft parses a markdown file with YAML frontmatter into a new-task
// draft. The markdown body becomes the description.
func ReadDraft(path string) (Draft, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path supplied by the user
	if err != nil {
		return Draft{}, fmt.Errorf("reading draft file: %w", err)
	}
	d, err := ParseDraft(data)
	if err != nil {
		return Draft{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

// ParseDraft parses draft file contents. Missing status and priority
// fall back to the editor defaults.
func ParseDraft(data []byte) (Draft, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return Draft{}, err
	}

	var raw draftFrontmatter
	if err := yaml.Unmarshal(fm, &raw); err != nil {
		return Draft{}, fmt.Errorf("parsing frontmatter: %w", err)
	}

	d := NewDraft()
	d.Title = strings.TrimSpace(raw.Title)
	d.Description = strings.TrimRight(body, "\n")
	d.AssignedTo = strings.TrimSpace(raw.Assignee)

	if raw.Status != "" {
		if d.Status, err = ParseStatus(raw.Status); err != nil {
			return Draft{}, err
		}
	}
	if raw.Priority != "" {
		if d.Priority, err = ParsePriority(raw.Priority); err != nil {
			return Draft{}, err
		}
	}
	if d.DueDate, err = date.ParseOptional(raw.Due); err != nil {
		return Draft{}, FormatDueDate(raw.Due, err)
	}
	return d, nil
}

// splitFrontmatter splits a markdown file into YAML frontmatter and body.
// The file must start with "---\n". Returns frontmatter bytes and body string.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	if !strings.HasPrefix(content, "---\n") {
		return nil, "", errors.New("file does not start with YAML frontmatter (---)")
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		closingLen := len("---")
		if strings.HasSuffix(rest, "\n---") {
			idx = len(rest) - closingLen - 1
		} else {
			return nil, "", errors.New("unclosed frontmatter (missing closing ---)")
		}
	}

	fm := rest[:idx]
	body := ""
	closingEnd := idx + len("\n---\n")
	if closingEnd < len(rest) {
		body = strings.TrimLeft(rest[closingEnd:], "\n")
	}

	return []byte(fm), body, nil
}
