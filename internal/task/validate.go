package task

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

// ValidateStatus checks that a status is one of Statuses.
func ValidateStatus(status string) error {
	for _, s := range Statuses {
		if string(s) == status {
			return nil
		}
	}
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": Statuses,
		})
}

// ValidatePriority checks that a priority is one of Priorities.
func ValidatePriority(priority string) error {
	for _, p := range Priorities {
		if string(p) == priority {
			return nil
		}
	}
	return clierr.Newf(clierr.InvalidPriority, "invalid priority %q", priority).
		WithDetails(map[string]any{
			"priority": priority,
			"allowed":  Priorities,
		})
}

// ParseStatus matches s case-insensitively against the known statuses,
// accepting "in-progress" style spellings from the command line.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if foldName(string(st)) == foldName(s) {
			return st, nil
		}
	}
	return "", ValidateStatus(s)
}

// ParsePriority matches s case-insensitively against the known priorities.
func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if foldName(string(p)) == foldName(s) {
			return p, nil
		}
	}
	return "", ValidatePriority(s)
}

// ValidateID checks that id is a well-formed object id.
func ValidateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", id).
			WithDetails(map[string]any{"input": id})
	}
	return nil
}

// ValidateUserID checks that id is a well-formed user reference.
func ValidateUserID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return clierr.Newf(clierr.InvalidInput, "invalid user ID %q", id).
			WithDetails(map[string]any{"input": id})
	}
	return nil
}

// ValidateDate returns a CLIError for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// FormatDueDate returns a CLIError for invalid due date input.
func FormatDueDate(input string, err error) *clierr.Error {
	return ValidateDate("due", input, err)
}

// TaskNotFound returns a CLIError for a task id the backend does not know.
func TaskNotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: %s", id).
		WithDetails(map[string]any{"id": id})
}

func foldName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c == '-' || c == '_':
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
