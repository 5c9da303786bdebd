package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	line := `time=2026-10-17T10:00:00.000+09:00 level=INFO msg="card saved" card_id=42 message="ok then"`
	entry := Parse(line)

	if !entry.Parsed() {
		t.Fatalf("Parse(%q) was not parsed", line)
	}
	if entry.Level != "INFO" {
		t.Errorf("Level = %q, want %q", entry.Level, "INFO")
	}
	if entry.Message != "card saved" {
		t.Errorf("Message = %q, want %q", entry.Message, "card saved")
	}
	if entry.Time.IsZero() || entry.Time.Hour() != 10 {
		t.Errorf("Time = %v, want 10:00 local to the record", entry.Time)
	}
	want := []Attr{{"card_id", "42"}, {"message", "ok then"}}
	if !reflect.DeepEqual(entry.Attrs, want) {
		t.Errorf("Attrs = %v, want %v", entry.Attrs, want)
	}
	if v, ok := entry.Attr("card_id"); !ok || v != "42" {
		t.Errorf("Attr(card_id) = %q, %v; want 42, true", v, ok)
	}
}

func TestParse_Unstructured(t *testing.T) {
	tests := []string{
		"",
		"panic: runtime error",
		`level=INFO msg="unterminated`,
		"time=2026-10-17T10:00:00Z msg=no-level",
	}
	for _, line := range tests {
		entry := Parse(line)
		if entry.Parsed() && line != "" {
			t.Errorf("Parse(%q) parsed, want raw", line)
		}
		if line != "" && entry.Raw != line {
			t.Errorf("Raw = %q, want %q", entry.Raw, line)
		}
	}
}

func TestParseLines(t *testing.T) {
	lines := []string{
		`time=2026-10-17T10:00:00Z level=WARN msg="push denied"`,
		"stray output",
	}
	entries := ParseLines(lines)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Raw != "stray output" {
		t.Fatalf("entries = %+v", entries)
	}
}
