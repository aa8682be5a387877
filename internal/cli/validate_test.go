package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components.cue"), []byte(src), 0o644))
	return dir
}

const invalidCUE = `
component: "Bad Name": {
	methods: m: "this.x +"
}
`

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/app/components")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All components valid (1)")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "testdata/app/components")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"counter-app"}, resp.Data.Components)
}

func TestValidate_ReportsEveryIssue(t *testing.T) {
	dir := writeCUE(t, invalidCUE)

	out, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E101")
	assert.Contains(t, out, "E105")
}

func TestValidate_InvalidJSON(t *testing.T) {
	dir := writeCUE(t, invalidCUE)

	out, _, err := execute(t, "validate", "--format", "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, "E101", resp.Data.Errors[0].Code)
	assert.Equal(t, "Bad Name.name", resp.Data.Errors[0].Field)
	assert.Equal(t, "E105", resp.Data.Errors[1].Code)
	assert.Equal(t, "E101", resp.Error.Code)
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{"missing directory", func(*testing.T) string { return "/nonexistent/components" }, ErrCodeNotFound},
		{"no CUE files", func(t *testing.T) string { return t.TempDir() }, ErrCodeNoFiles},
		{"syntax error", func(t *testing.T) string { return writeCUE(t, "component: {") }, ErrCodeBuildFailed},
		{"no component field", func(t *testing.T) string { return writeCUE(t, "other: 1") }, ErrCodeNoComponents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
