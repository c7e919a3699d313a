//nolint:testpackage // Tests require internal access for thorough testing
package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
)

func TestIsValidPriority(t *testing.T) {
	tests := []struct {
		priority Priority
		valid    bool
	}{
		{PriorityHigh, true},
		{PriorityMedium, true},
		{PriorityLow, true},
		{Priority("critical"), false},
		{Priority(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := IsValidPriority(tt.priority); got != tt.valid {
				t.Errorf("IsValidPriority(%q) = %v, want %v", tt.priority, got, tt.valid)
			}
		})
	}
}

func TestPriorityOrder(t *testing.T) {
	if PriorityOrder(PriorityHigh) >= PriorityOrder(PriorityMedium) {
		t.Error("High should have lower order than Medium")
	}
	if PriorityOrder(PriorityMedium) >= PriorityOrder(PriorityLow) {
		t.Error("Medium should have lower order than Low")
	}
}

func TestNewTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   NewTask
		wantErr bool
	}{
		{"valid", NewTask{Title: "Write report"}, false},
		{"empty title", NewTask{Title: ""}, true},
		{"whitespace title", NewTask{Title: "   "}, true},
		{"bad priority", NewTask{Title: "x", Priority: "urgent"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !tferrors.IsValidation(err) {
				t.Errorf("Validate() error = %T, want validation error", err)
			}
		})
	}
}

func TestNewTaskBuildDefaults(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tk := NewTask{Title: "Write report"}.Build("abc", now)

	if tk.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", tk.Priority, PriorityMedium)
	}
	if tk.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", tk.Category, DefaultCategory)
	}
	if tk.IsActive || tk.Completed {
		t.Error("new task should be neither active nor completed")
	}
	if tk.TotalTimeSpent != 0 {
		t.Errorf("TotalTimeSpent = %d, want 0", tk.TotalTimeSpent)
	}
	if !tk.CreatedAt.Equal(now) || !tk.UpdatedAt.Equal(now) {
		t.Error("timestamps should equal creation time")
	}
}

func TestPatchApply(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	tk := NewTask{Title: "Old"}.Build("abc", created)

	Patch{Title: Ptr("New"), IsActive: Ptr(true), TotalTimeSpent: Ptr(int64(30))}.Apply(&tk, later)

	if tk.Title != "New" {
		t.Errorf("Title = %q, want %q", tk.Title, "New")
	}
	if !tk.IsActive {
		t.Error("IsActive should be true")
	}
	if tk.TotalTimeSpent != 30 {
		t.Errorf("TotalTimeSpent = %d, want 30", tk.TotalTimeSpent)
	}
	if !tk.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", tk.UpdatedAt, later)
	}
	if tk.Category != DefaultCategory {
		t.Errorf("Category changed to %q", tk.Category)
	}
}

func TestPatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"title", Patch{Title: Ptr("New")}, false},
		{"empty title", Patch{Title: Ptr("")}, true},
		{"bad priority", Patch{Priority: Ptr(Priority("urgent"))}, true},
		{"decreasing total_time_spent", Patch{TotalTimeSpent: Ptr(int64(50))}, true},
		{"increasing total_time_spent", Patch{TotalTimeSpent: Ptr(int64(150))}, true},
		{"is_active", Patch{IsActive: Ptr(true)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr && !tferrors.IsValidation(err) {
				t.Errorf("Validate() = %v, want validation error", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error %v", err)
			}
		})
	}
}

func TestPatchJSONOmitsUnset(t *testing.T) {
	data, err := json.Marshal(Patch{IsActive: Ptr(false)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"is_active":false}` {
		t.Errorf("Marshal = %s, want %s", data, `{"is_active":false}`)
	}
}

func TestDateJSON(t *testing.T) {
	var tk Task
	if err := json.Unmarshal([]byte(`{"due_date":"2024-03-01"}`), &tk); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if tk.DueDate == nil || tk.DueDate.String() != "2024-03-01" {
		t.Fatalf("DueDate = %v, want 2024-03-01", tk.DueDate)
	}

	if err := json.Unmarshal([]byte(`{"due_date":"2024-03-01T15:04:05Z"}`), &tk); err != nil {
		t.Fatalf("Unmarshal timestamp failed: %v", err)
	}
	if tk.DueDate.String() != "2024-03-01" {
		t.Errorf("DueDate = %s, want 2024-03-01", tk.DueDate)
	}

	if err := json.Unmarshal([]byte(`{"due_date":null}`), &tk); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if tk.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", tk.DueDate)
	}
}

func TestShortID(t *testing.T) {
	ids := []string{"abcdef12", "abcdff34", "99887766"}

	if got := ShortID("99887766", ids); got != "9988" {
		t.Errorf("ShortID = %q, want %q", got, "9988")
	}
	if got := ShortID("abcdef12", ids); got != "abcde" {
		t.Errorf("ShortID = %q, want %q", got, "abcde")
	}
}

func TestResolveID(t *testing.T) {
	ids := []string{"abcdef12", "abcdff34", "99887766"}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr error
	}{
		{"unique prefix", "998", "99887766", nil},
		{"exact match", "abcdef12", "abcdef12", nil},
		{"ambiguous", "abcd", "", tferrors.AmbiguousIDError{}},
		{"missing", "zzz", "", tferrors.TaskNotFoundError{}},
		{"empty", "", "", tferrors.TaskNotFoundError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveID(tt.prefix, ids)
			if got != tt.want {
				t.Errorf("ResolveID(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
			switch tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			case tferrors.AmbiguousIDError:
				var target tferrors.AmbiguousIDError
				if !errors.As(err, &target) {
					t.Errorf("error = %v, want AmbiguousIDError", err)
				}
			case tferrors.TaskNotFoundError:
				if !tferrors.IsNotFound(err) {
					t.Errorf("error = %v, want TaskNotFoundError", err)
				}
			}
		})
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("Expected different IDs")
	}
	if len(a) != 36 {
		t.Errorf("ID length = %d, want 36", len(a))
	}
}
