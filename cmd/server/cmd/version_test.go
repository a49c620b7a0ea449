package cmd

import (
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = "1.2.3", "abc123"
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	output, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"Charity Event Manager", "Version:    1.2.3", "Git commit: abc123", "Go version:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}
