package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/internal/testutils"
	"github.com/aretw0/yax/pkg/domain"
)

const testManifest = `
actions:
  all: sequence
modules:
  log:
    state: []
    reducers:
      push: append
  count:
    state: 0
    reducers:
      add: incr
      minus: decr
    actions:
      later: delay
`

func writeManifest(t *testing.T, content string) string {
	return testutils.WriteManifest(t, "store.yaml", content)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDispatchCmd(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, err := run(t, "dispatch", path, "count/add", "2",
		"--action", "count/minus=1",
		"--action", `count/later={"ms":1,"commit":"add","payload":10}`,
		"--action", "log/push=hello",
	)
	require.NoError(t, err)

	var report struct {
		Results []struct {
			Type   string `json:"type"`
			Result any    `json:"result"`
		} `json:"results"`
		State map[string]any `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 4)
	assert.Equal(t, "count/add", report.Results[0].Type)
	assert.Equal(t, float64(2), report.Results[0].Result)
	assert.Equal(t, float64(11), report.State["count"])
	assert.Equal(t, []any{"hello"}, report.State["log"])
}

func TestDispatchCmd_YAMLOutput(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, err := run(t, "dispatch", path, "-o", "yaml", "--action", "count/add")
	require.NoError(t, err)
	assert.Contains(t, out, "results:\n  - type: count/add\n    result: 1\n")
	assert.Contains(t, out, "count: 1\n")
}

func TestDispatchCmd_Errors(t *testing.T) {
	path := writeManifest(t, testManifest)

	_, err := run(t, "dispatch", path, "count/nope")
	assert.ErrorIs(t, err, domain.ErrUnknownHandler)

	_, err = run(t, "dispatch", path, "--action", "=1")
	assert.ErrorContains(t, err, "missing type")

	_, err = run(t, "dispatch", path, "-o", "toml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "dispatch", path, "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")

	_, err = run(t, "dispatch", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInspectCmd(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# store.yaml")
	assert.Contains(t, out, "| `count` | add, minus | later | - |")
	assert.Contains(t, out, "count: 0")
}

func TestGraphCmd(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, err := run(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "m_ --> m_count\n")
	assert.Contains(t, out, "m_ --> m_log\n")
}

func TestValidateCmd(t *testing.T) {
	out, err := run(t, "validate", writeManifest(t, testManifest))
	require.NoError(t, err)
	assert.Contains(t, out, "Manifest is valid!")

	_, err = run(t, "validate", writeManifest(t, "state: 1\nmodules: {a: {}}"))
	assert.ErrorIs(t, err, domain.ErrStateNotMapping)

	_, err = run(t, "validate", writeManifest(t, "reducers: {a: nope}"))
	assert.ErrorContains(t, err, "validation failed")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "yax version "+yax.Version+"\n", out)
}

func TestMCPCmd_UnknownTransport(t *testing.T) {
	_, err := run(t, "mcp", writeManifest(t, testManifest), "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Action
		wantErr bool
	}{
		{in: "count/add", want: domain.Action{Type: "count/add"}},
		{in: "count/add=2", want: domain.Action{Type: "count/add", Payload: float64(2)}},
		{in: `set={"a":[1]}`, want: domain.Action{Type: "set", Payload: map[string]any{"a": []any{float64(1)}}}},
		{in: "log=hello world", want: domain.Action{Type: "log", Payload: "hello world"}},
		{in: "log=", want: domain.Action{Type: "log", Payload: ""}},
		{in: " =x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAction(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
