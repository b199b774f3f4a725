// Package cli — init_test.go contains unit tests for the pure parsing
// and formatting helpers used by the init command. Command wiring is
// exercised end to end through the packages it delegates to.
package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-io/devforge/internal/extract"
	"github.com/devforge-io/devforge/internal/model"
)

func TestSplitCommaList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "git", want: []string{"git"}},
		{name: "multiple with spaces", input: "git, node ,python", want: []string{"git", "node", "python"}},
		{name: "empty entries dropped", input: "git,,node,", want: []string{"git", "node"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCommaList(tt.input))
		})
	}
}

func TestParseKeyValueFlags(t *testing.T) {
	out, err := parseKeyValueFlags([]string{"A=1", "B=x=y", "C="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, out)

	out, err = parseKeyValueFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = parseKeyValueFlags([]string{"no-equals"})
	assert.Error(t, err)

	_, err = parseKeyValueFlags([]string{"=value"})
	assert.Error(t, err)
}

func TestParseOptionFlags(t *testing.T) {
	out, err := parseOptionFlags([]string{"node:version=22", "node:installYarn=true", "git:version=latest"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"node": {"version": "22", "installYarn": "true"},
		"git":  {"version": "latest"},
	}, out)

	for _, bad := range []string{"noseparator", "node:", "node:keyonly", ":key=value"} {
		_, err := parseOptionFlags([]string{bad})
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParsePackageRef(t *testing.T) {
	ref, err := parsePackageRef("https://feed.example.com/pkg.nupkg")
	require.NoError(t, err)
	assert.Equal(t, extract.PackageRef{URL: "https://feed.example.com/pkg.nupkg"}, ref)

	dir := t.TempDir()
	path := filepath.Join(dir, "local.nupkg")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o644))

	ref, err = parsePackageRef(path)
	require.NoError(t, err)
	assert.Equal(t, path, ref.Path)

	_, err = parsePackageRef(filepath.Join(dir, "missing.nupkg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDescribeConflicts_OnlyBlocking(t *testing.T) {
	out := describeConflicts([]model.Conflict{
		{A: "a", B: "b", Reason: "a conflicts with b", Severity: model.SeverityError},
		{A: "c", B: "d", Reason: "just a note", Severity: model.SeverityWarning},
	})
	assert.Equal(t, "a conflicts with b", out)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one\ntwo"))
	assert.Equal(t, "plain", firstLine("plain"))
	assert.Equal(t, "", firstLine(""))
}
