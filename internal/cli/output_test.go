package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"html": "<p>a&b</p>"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, buf.String(), "<p>a&b</p>", "markup is not HTML-escaped")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error(ErrCodeNotFound, "document not found", map[string]string{"path": "x.html"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "document not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("All components valid"))
	require.NoError(t, f.Error("E001", "boom", "hidden"))
	f.Printf("%d run(s)\n", 2)

	out := buf.String()
	assert.Contains(t, out, "All components valid")
	assert.Contains(t, out, "Error [E001]: boom")
	assert.NotContains(t, out, "hidden", "details only show with --verbose")
	assert.Contains(t, out, "2 run(s)")
}

func TestOutputFormatter_PrintfSilentInJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	f.Printf("ignored")
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("mounting %s", "app")
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("mounting %s", "app")
	assert.Equal(t, "mounting app\n", errOut.String())
	assert.Empty(t, out.String(), "diagnostics never reach the JSON stream")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("x"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitFailure, "failed")), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open journal", cause)

	assert.Equal(t, "failed to open journal: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
