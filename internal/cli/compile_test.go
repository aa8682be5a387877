package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/app/components")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 component(s)")
	assert.Contains(t, out, "counter-app: template counter-app, 0 parameter(s), 2 data field(s), methods [inc]")
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "compile", "--format", "json", "testdata/app/components")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Components, 1)

	spec := resp.Data.Components[0]
	assert.Equal(t, "counter-app", spec.Name)
	assert.Equal(t, 0.0, spec.Data["count"])
	assert.Equal(t, "this.count += 1", spec.Methods["inc"].Body)
}

func TestCompile_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.json")

	out, _, err := execute(t, "compile", "-o", path, "testdata/app/components")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote components to "+path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(b, &result))
	require.Len(t, result.Components, 1)
	assert.Equal(t, "counter-app", result.Components[0].Name)
}

func TestCompile_Errors(t *testing.T) {
	dir := writeCUE(t, invalidCUE)

	out, _, err := execute(t, "compile", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")
	assert.Contains(t, out, "✗ Compilation failed")
}

func TestCompile_MethodWithoutBody(t *testing.T) {
	dir := writeCUE(t, `component: broken: methods: oops: { params: ["x"] }`)

	out, _, err := execute(t, "compile", "--format", "json", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidMethod, resp.Error.Code)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"cue":           ErrCodeLoadFailed,
		"component":     "E101",
		"template":      "E102",
		"parameters[0]": "E103",
		"data.count":    ErrCodeInvalidData,
		"methods.inc":   ErrCodeInvalidMethod,
		"other":         ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
