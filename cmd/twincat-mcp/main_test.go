package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// executeRoot runs the CLI with logs on the captured stderr and no config
// file outside the test's temp dirs.
func executeRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-file", "-"))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestToolsCommandJSON(t *testing.T) {
	out, _, err := executeRoot(t, "", "tools", "--output", "json")
	require.NoError(t, err)

	var doc struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Tools, 7)
	require.Equal(t, "twincat_build", doc.Tools[0].Name)
	require.Equal(t, "twincat_deploy", doc.Tools[6].Name)
	require.Equal(t, []string{"solutionPath", "amsNetId"}, doc.Tools[6].InputSchema.Required)
}

func TestToolsCommandYAML(t *testing.T) {
	out, _, err := executeRoot(t, "", "tools", "-o", "yaml")
	require.NoError(t, err)

	var doc struct {
		Tools []struct {
			Name string `yaml:"name"`
		} `yaml:"tools"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Tools, 7)
	require.Equal(t, "twincat_get_info", doc.Tools[1].Name)
}

func TestToolsCommandText(t *testing.T) {
	out, _, err := executeRoot(t, "", "tools")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Available tools (7):\n"))
	require.Contains(t, out, "  - solutionPath (string, required): ")
	require.Contains(t, out, "  - clean (boolean, optional) default true: ")
	require.Contains(t, out, "  - dryRun (boolean, optional) default false: ")
}

func TestToolsCommandRejectsUnknownFormat(t *testing.T) {
	_, _, err := executeRoot(t, "", "tools", "--output", "xml")
	require.ErrorContains(t, err, `unsupported output format "xml"`)
}

func TestCallValidationErrorExitsWithOne(t *testing.T) {
	out, _, err := executeRoot(t, "", "call", "twincat_build")

	var exitErr *ExitCodeError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 1, exitErr.Code)
	require.Nil(t, exitErr.Err)
	require.True(t, strings.HasPrefix(out, "❌ Validation error: "), out)
	require.Contains(t, out, "solutionPath")
}

func TestCallUnknownTool(t *testing.T) {
	out, _, err := executeRoot(t, "", "call", "twincat_flash")
	require.Error(t, err)
	require.Equal(t, "Unknown tool: twincat_flash\n", out)
}

func TestCallMissingExecutable(t *testing.T) {
	out, _, err := executeRoot(t, "", "call", "twincat_get_info",
		"--arg", "solutionPath=C:/proj/Plant.sln",
		"--exe", "/nonexistent/TcAutomation.exe")
	require.Error(t, err)
	require.Contains(t, out, "TcAutomation.exe not found")
	require.Contains(t, out, "/nonexistent/TcAutomation.exe")
}

func TestParseCallArgs(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		pairs   []string
		want    map[string]any
		wantErr string
	}{
		{name: "empty", want: map[string]any{}},
		{
			name:  "pairs keep strings",
			pairs: []string{"solutionPath=C:/a=b.sln", "clean=false"},
			want:  map[string]any{"solutionPath": "C:/a=b.sln", "clean": "false"},
		},
		{
			name:  "pairs override json",
			json:  `{"solutionPath": "x.sln", "dryRun": true}`,
			pairs: []string{"solutionPath=y.sln"},
			want:  map[string]any{"solutionPath": "y.sln", "dryRun": true},
		},
		{name: "bad pair", pairs: []string{"solutionPath"}, wantErr: "expected key=value"},
		{name: "empty key", pairs: []string{"=x"}, wantErr: "expected key=value"},
		{name: "json array", json: `[1]`, wantErr: "--json must be a JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseCallArgs(tc.json, tc.pairs)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestServeAnswersInitializeAndToolsList(t *testing.T) {
	stdin := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"twincat_clean","arguments":{}}}`,
	}, "\n") + "\n"

	out, _, err := executeRoot(t, stdin, "serve")
	require.NoError(t, err)

	responses := map[string]map[string]any{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var resp map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		id, err := json.Marshal(resp["id"])
		require.NoError(t, err)
		responses[string(id)] = resp
	}
	require.Len(t, responses, 3)

	initResult := responses["1"]["result"].(map[string]any)
	require.Equal(t, "2024-11-05", initResult["protocolVersion"])
	require.Equal(t, "twincat-mcp", initResult["serverInfo"].(map[string]any)["name"])

	tools := responses["2"]["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 7)

	call := responses["3"]["result"].(map[string]any)
	require.Equal(t, true, call["isError"])
	text := call["content"].([]any)[0].(map[string]any)["text"].(string)
	require.True(t, strings.HasPrefix(text, "❌ Validation error: "), text)
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	_, _, err := executeRoot(t, "", "tools", "--timeout", "0s")
	require.NoError(t, err, "tools does not load configuration")

	_, _, err = executeRoot(t, "", "call", "twincat_build", "--timeout", "0s")
	require.ErrorContains(t, err, "process.timeout must be positive")
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("TWINCAT_MCP_VERSION", "")
	out, _, err := executeRoot(t, "", "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "twincat-mcp "), out)
}

func TestColorize(t *testing.T) {
	text := "❌ Build failed\n🔴 Errors:\n  - x"
	require.Equal(t, text, colorize(text, true, false))

	colored := colorize(text, true, true)
	require.Contains(t, colored, "\x1b[")
	require.True(t, strings.HasSuffix(colored, "\n🔴 Errors:\n  - x"))

	require.False(t, colorEnabled(&bytes.Buffer{}))
}

func TestExitCodeError(t *testing.T) {
	silent := &ExitCodeError{Code: 1}
	require.Equal(t, "exit status 1", silent.Error())
	require.Nil(t, silent.Unwrap())

	wrapped := &ExitCodeError{Code: 2, Err: errors.New("boom")}
	require.Equal(t, "boom", wrapped.Error())
	require.EqualError(t, wrapped.Unwrap(), "boom")
}
