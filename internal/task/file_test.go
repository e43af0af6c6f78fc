package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

func TestReadDraft(t *testing.T) {
	content := "---\ntitle: Quarterly report\nstatus: in-progress\npriority: high\ndue: 2024-09-30\n" +
		"assignee: " + userID + "\n---\n\nCollect numbers from **sales**.\n"
	path := filepath.Join(t.TempDir(), "draft.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := ReadDraft(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Quarterly report" || d.Status != StatusInProgress || d.Priority != PriorityHigh {
		t.Errorf("draft = %+v", d)
	}
	if d.DueDate == nil || d.DueDate.String() != "2024-09-30" {
		t.Errorf("due = %v", d.DueDate)
	}
	if d.Description != "Collect numbers from **sales**." {
		t.Errorf("description = %q", d.Description)
	}
	if !d.IsNew() || d.AssignedTo != userID {
		t.Errorf("draft = %+v", d)
	}
}

func TestParseDraftDefaultsAndErrors(t *testing.T) {
	d, err := ParseDraft([]byte("---\ntitle: Minimal\n---\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != DefaultStatus || d.Priority != DefaultPriority || d.Description != "" {
		t.Errorf("draft = %+v", d)
	}

	tests := []struct {
		name string
		in   string
		code string
	}{
		{name: "bad status", in: "---\ntitle: x\nstatus: blocked\n---\n", code: clierr.InvalidStatus},
		{name: "bad due", in: "---\ntitle: x\ndue: soon\n---\n", code: clierr.InvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDraft([]byte(tt.in)); !clierr.Is(err, tt.code) {
				t.Errorf("ParseDraft = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := ParseDraft([]byte("no frontmatter")); err == nil {
		t.Error("expected error without frontmatter")
	}
	if _, err := ParseDraft([]byte("---\ntitle: x\n")); err == nil {
		t.Error("expected error for unclosed frontmatter")
	}
}
