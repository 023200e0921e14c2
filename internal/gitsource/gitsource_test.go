package gitsource

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckoutPath(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "HTTPS",
			url:  "https://github.com/someone/vocab.git",
			want: filepath.Join("repos", "github.com", "someone", "vocab"),
		},
		{
			name: "SSH",
			url:  "git@github.com:someone/vocab.git",
			want: filepath.Join("repos", "github.com", "someone", "vocab"),
		},
		{
			name: "HTTPS without suffix",
			url:  "https://gitlab.example.org/group/cards",
			want: filepath.Join("repos", "gitlab.example.org", "group", "cards"),
		},
		{
			name:    "Unsupported",
			url:     "ftp://example.com/cards",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CheckoutPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error, but got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckoutPath() returned an unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, but got %q", tc.want, got)
			}
		})
	}
}

func TestSyncLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// An existing directory that is not a repository is pulled, which fails.
	dir := t.TempDir()
	err := Sync(logger, "https://example.com/cards.git", dir, io.Discard)
	if err == nil {
		t.Fatal("Expected an error for a directory that is not a repository")
	}
	if !strings.Contains(buf.String(), "Pulling catalog repository") {
		t.Errorf("Expected the pull to be logged, but got %q", buf.String())
	}
}
