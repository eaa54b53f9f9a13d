package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
)

// useStateDir points the persistent flags at a scratch state directory.
func useStateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prevConfig, prevState, prevColor := configPath, stateDir, colorMode
	configPath, stateDir, colorMode = "", dir, "never"
	t.Setenv("BITDOC_CONFIG", "")
	t.Cleanup(func() {
		configPath, stateDir, colorMode = prevConfig, prevState, prevColor
	})
	return dir
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandFailureMessages(t *testing.T) {
	dir := useStateDir(t)

	testCases := []struct {
		name    string
		cmd     *cobra.Command
		args    []string
		want    string
		wantErr error
	}{
		{
			name:    "report without groups",
			cmd:     newReportCmd(),
			args:    []string{"--format", "md", "-o", filepath.Join(dir, "r.md")},
			want:    "MD export failed: ",
			wantErr: bverrors.ErrNoGroups,
		},
		{
			name: "export with unknown encoding",
			cmd:  newExportCmd(),
			args: []string{"--encoding", "rot13"},
			want: "Export failed: ",
		},
		{
			name: "import of garbage",
			cmd:  newImportCmd(),
			args: []string{"!!!"},
			want: "Import failed: ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(tc.cmd, tc.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
			if strings.Contains(err.Error(), "failed:") {
				t.Errorf("error value carries the status prefix: %q", err)
			}
			if got := failureMessage(tc.cmd, err); !strings.HasPrefix(got, tc.want) {
				t.Errorf("failureMessage = %q, want prefix %q", got, tc.want)
			}
		})
	}
}

func TestFailureMessageWithoutAction(t *testing.T) {
	err := errors.New("boom")
	if got := failureMessage(&cobra.Command{Use: "plain"}, err); got != "boom" {
		t.Errorf("failureMessage = %q", got)
	}
	if got := failureMessage(nil, err); got != "boom" {
		t.Errorf("failureMessage(nil) = %q", got)
	}
}

func TestHexCommand(t *testing.T) {
	useStateDir(t)

	out, err := execute(newHexCmd(), "be", "ef")
	if err != nil || out != "0xBEEF\n" {
		t.Errorf("hex = %q, %v", out, err)
	}
	if _, err := execute(newHexCmd(), "xyz"); !errors.Is(err, bverrors.ErrInvalidHex) {
		t.Errorf("invalid hex err = %v", err)
	}
}
