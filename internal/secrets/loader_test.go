package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("INTERVIEW_COACH_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{
			name: "file wins",
			src:  Source{Name: "api key", File: keyFile, Env: "INTERVIEW_COACH_TEST_KEY", Value: "inline"},
			want: "from-file",
		},
		{
			name: "env before inline",
			src:  Source{Name: "api key", Env: "INTERVIEW_COACH_TEST_KEY", Value: "inline"},
			want: "from-env",
		},
		{
			name: "inline fallback",
			src:  Source{Name: "api key", Env: "INTERVIEW_COACH_UNSET_KEY", Value: " inline "},
			want: "inline",
		},
		{
			name:    "empty file",
			src:     Source{Name: "api key", File: emptyFile},
			wantErr: "is empty",
		},
		{
			name:    "missing file",
			src:     Source{Name: "api key", File: filepath.Join(dir, "missing")},
			wantErr: "reading api key",
		},
		{
			name:    "nothing configured",
			src:     Source{Env: "INTERVIEW_COACH_UNSET_KEY"},
			wantErr: "secret is not configured (set INTERVIEW_COACH_UNSET_KEY)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
