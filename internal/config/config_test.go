package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	withFile := DefaultConfig()
	withFile.Color = true
	withFile.Prompt = "php> "
	withFile.HistoryLimit = 50

	tests := []struct {
		name     string
		path     string
		explicit bool
		want     Config
		wantErr  bool
	}{
		{
			name: "no path",
			want: DefaultConfig(),
		},
		{
			name: "missing default file",
			path: filepath.Join(dir, "absent.yaml"),
			want: DefaultConfig(),
		},
		{
			name:     "missing explicit file",
			path:     filepath.Join(dir, "absent.yaml"),
			explicit: true,
			wantErr:  true,
		},
		{
			name: "overrides",
			path: write("rc.yaml", "color: true\nprompt: \"php> \"\nhistory_limit: 50\n"),
			want: withFile,
		},
		{
			name: "zero limit falls back",
			path: write("zero.yaml", "history_limit: 0\n"),
			want: DefaultConfig(),
		},
		{
			name:    "malformed",
			path:    write("bad.yaml", "color: [\n"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.path, tt.explicit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HistoryLimit != 500 {
		t.Errorf("HistoryLimit = %d, want 500", cfg.HistoryLimit)
	}
	if filepath.Base(cfg.HistoryFile) != ".phunkie_history" {
		t.Errorf("HistoryFile = %q", cfg.HistoryFile)
	}
}
