package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("defaults are always present", func(t *testing.T) {
		m := NewIgnoreMatcher(nil)
		if len(m.patterns) != len(defaultIgnorePatterns) {
			t.Fatalf("len(patterns) = %d, want %d", len(m.patterns), len(defaultIgnorePatterns))
		}
	})

	t.Run("skips blank lines and comments", func(t *testing.T) {
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log"})
		last := m.patterns[len(m.patterns)-1]
		if len(m.patterns) != len(defaultIgnorePatterns)+1 || last.pattern != "*.log" {
			t.Errorf("patterns = %+v", m.patterns)
		}
	})

	t.Run("classifies path vs basename patterns", func(t *testing.T) {
		m := NewIgnoreMatcher([]string{"*.log", "build/output"})
		n := len(m.patterns)
		if m.patterns[n-2].matchPath {
			t.Error("*.log should not be a path pattern")
		}
		if !m.patterns[n-1].matchPath {
			t.Error("build/output should be a path pattern")
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob in root", []string{"*.log"}, "app.log", true},
		{"basename glob in subdirectory", []string{"*.log"}, filepath.Join("sub", "app.log"), true},
		{"different extension", []string{"*.log"}, "app.txt", false},
		{"default ignore file", nil, IgnoreFileName, true},
		{"default DS_Store in subdirectory", nil, filepath.Join("sub", ".DS_Store"), true},
		{"path pattern", []string{"build/output"}, filepath.Join("build", "output"), true},
		{"path pattern wrong dir", []string{"build/output"}, filepath.Join("src", "output"), false},
		{"path pattern with glob", []string{"build/*.o"}, filepath.Join("build", "main.o"), true},
		{"character class", []string{"*.[oa]"}, "main.o", true},
		{"malformed pattern never matches", []string{"[x"}, "[x", false},
		{"plain file", nil, "photo.jpg", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewIgnoreMatcher(tt.patterns).Match(tt.relativePath)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_Nil(t *testing.T) {
	var m *IgnoreMatcher
	if m.Match(".DS_Store") {
		t.Error("nil matcher should match nothing")
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads raw lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.log\n# comment\n\n*.tmp\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 4 {
			t.Fatalf("expected 4 raw lines, got %d", len(patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
