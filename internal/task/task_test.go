package task

import (
	"encoding/json"
	"testing"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

const (
	taskID = "65f1c0a2b3c4d5e6f7a8b9c0"
	userID = "60e86b8b0e5d4a001c8c9a01"
)

func TestTaskUnmarshalPopulated(t *testing.T) {
	raw := `{
		"_id": "` + taskID + `",
		"title": "Ship it",
		"dueDate": "2024-06-30T00:00:00.000Z",
		"assignedTo": {"_id": "` + userID + `", "name": "Suman Sharma"},
		"status": "In Progress",
		"priority": "High",
		"comments": [
			{"_id": "c2", "userId": {"_id": "u1", "name": "B"}, "text": "second", "createdAt": "2024-06-02T10:00:00Z"},
			{"_id": "c1", "userId": "u2", "text": "first", "createdAt": "2024-06-01T10:00:00Z"}
		]
	}`

	var tk Task
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatal(err)
	}
	if tk.DueDate == nil || tk.DueDate.String() != "2024-06-30" {
		t.Errorf("due = %v", tk.DueDate)
	}
	if tk.AssigneeName() != "Suman Sharma" || tk.AssigneeID() != userID {
		t.Errorf("assignee = %+v", tk.AssignedTo)
	}
	if len(tk.Comments) != 2 || tk.Comments[0].ID != "c1" {
		t.Fatalf("comments not ordered by creation: %+v", tk.Comments)
	}
	if tk.Comments[0].Author.ID != "u2" || tk.Comments[0].Author.Name != "" {
		t.Errorf("bare id author = %+v", tk.Comments[0].Author)
	}
	if tk.Comment("c2") == nil || tk.Comment("zz") != nil {
		t.Error("Comment lookup mismatch")
	}
}

func TestTaskUnmarshalEmptyRefs(t *testing.T) {
	tests := []string{
		`{"_id":"a","title":"x","dueDate":"","assignedTo":""}`,
		`{"_id":"a","title":"x","dueDate":null,"assignedTo":null}`,
		`{"_id":"a","title":"x"}`,
	}
	for _, raw := range tests {
		var tk Task
		if err := json.Unmarshal([]byte(raw), &tk); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if tk.DueDate != nil {
			t.Errorf("%s: due = %v, want nil", raw, tk.DueDate)
		}
		if tk.AssignedTo != nil || tk.AssigneeName() != "Unassigned" {
			t.Errorf("%s: assignee = %+v", raw, tk.AssignedTo)
		}
	}
}

func TestDraftFromTask(t *testing.T) {
	var tk Task
	raw := `{"_id":"` + taskID + `","title":"T","description":"D","dueDate":"2024-01-05T12:00:00Z",
		"assignedTo":{"_id":"` + userID + `","name":"N"},"status":"Completed","priority":"Low"}`
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatal(err)
	}

	d := DraftFrom(&tk)
	if d.IsNew() {
		t.Error("draft from existing task reported new")
	}
	if d.AssignedTo != userID {
		t.Errorf("assignee = %q, want id", d.AssignedTo)
	}
	body := d.Body()
	if body.DueDate != "2024-01-05" {
		t.Errorf("due = %q", body.DueDate)
	}
	if body.Status != StatusCompleted || body.Priority != PriorityLow {
		t.Errorf("body = %+v", body)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft()
	if !d.IsNew() || d.Status != StatusPending || d.Priority != PriorityMedium {
		t.Fatalf("NewDraft = %+v", d)
	}
	if !clierr.Is(d.Validate(), clierr.InvalidInput) {
		t.Error("untitled draft should fail validation")
	}
	body := d.Body()
	if body.DueDate != "" || body.AssignedTo != "" {
		t.Errorf("empty draft body = %+v", body)
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Draft)
		code string
	}{
		{name: "bad status", mod: func(d *Draft) { d.Status = "Done" }, code: clierr.InvalidStatus},
		{name: "bad priority", mod: func(d *Draft) { d.Priority = "Urgent" }, code: clierr.InvalidPriority},
		{name: "bad assignee", mod: func(d *Draft) { d.AssignedTo = "bob" }, code: clierr.InvalidInput},
		{name: "bad id", mod: func(d *Draft) { d.ID = "42" }, code: clierr.InvalidTaskID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft()
			d.Title = "ok"
			tt.mod(&d)
			if err := d.Validate(); !clierr.Is(err, tt.code) {
				t.Errorf("Validate = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestPatchValidate(t *testing.T) {
	if err := (Patch{}).Validate(); !clierr.Is(err, clierr.NoChanges) {
		t.Errorf("empty patch = %v", err)
	}
	due := "2024-02-30"
	if err := (Patch{DueDate: &due}).Validate(); !clierr.Is(err, clierr.InvalidDate) {
		t.Errorf("bad due = %v", err)
	}
	none := ""
	if err := (Patch{AssignedTo: &none}).Validate(); err != nil {
		t.Errorf("clearing assignee = %v", err)
	}

	out, err := json.Marshal(Patch{AssignedTo: &none})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"assignedTo":""}` {
		t.Errorf("patch json = %s", out)
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"pending", StatusPending},
		{"in-progress", StatusInProgress},
		{"In Progress", StatusInProgress},
		{"COMPLETED", StatusCompleted},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := ParseStatus("done"); !clierr.Is(err, clierr.InvalidStatus) {
		t.Errorf("ParseStatus(done) = %v", err)
	}
	if p, err := ParsePriority("high"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(high) = %q, %v", p, err)
	}
}

func TestIdentityAuthored(t *testing.T) {
	id := Identity{UserID: userID, Name: "Suman Sharma"}
	mine := Comment{Author: UserRef{ID: userID}}
	theirs := Comment{Author: UserRef{ID: "other"}}
	if !id.Authored(mine) || id.Authored(theirs) {
		t.Error("Authored mismatch")
	}
	if (Identity{}).Authored(Comment{}) {
		t.Error("unknown identity must not author anything")
	}
}
