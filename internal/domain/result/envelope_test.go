package result

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "twincat-mcp/internal/shared/errors"
)

func TestDecodeUsesDocumentSuccessField(t *testing.T) {
	env, err := Decode([]byte(`{"success": false, "errorMessage": "compile failed", "errors": []}`))
	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, "compile failed", env.ErrorMessage)
	require.Equal(t, errs.KindNone, env.Kind)
	require.NotEmpty(t, env.Raw())
}

func TestDecodeRejectsNonDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":      "not-json",
		"two documents": `{"success":true} {"success":true}`,
		"array":         `[1,2]`,
		"string":        `"ok"`,
		"trailing junk": `{"success":true} trailing`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			require.Error(t, err)
		})
	}
}

func TestDecodeToleratesWrongHeaderTypes(t *testing.T) {
	env, err := Decode([]byte(`{"success": "yes", "message": "done"}`))
	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, "done", View[MessageResult](env).Message)
}

func TestFailureFromInvalidJSONKeepsStderrSeparately(t *testing.T) {
	env := Failure(&errs.ProcessOutputError{Stdout: "not-json", Stderr: "trace"})
	require.False(t, env.Success)
	require.Equal(t, errs.KindProcessOutput, env.Kind)
	require.Contains(t, env.ErrorMessage, "Invalid JSON output: not-json")
	require.Equal(t, "trace", env.Stderr)
}

func TestFailureFromEmptyOutputDoesNotDuplicateStderr(t *testing.T) {
	env := Failure(&errs.ProcessOutputError{Stderr: "license expired"})
	require.Equal(t, "license expired", env.ErrorMessage)
	require.Empty(t, env.Stderr)
}

func TestFailureTimeout(t *testing.T) {
	env := Failure(&errs.TimeoutError{Timeout: 5 * time.Minute})
	require.Equal(t, errs.KindTimeout, env.Kind)
	require.Equal(t, "Command timed out after 5 minutes", env.ErrorMessage)
}

func TestDetailPrefersError(t *testing.T) {
	require.Equal(t, "a", Envelope{Error: "a", ErrorMessage: "b"}.Detail())
	require.Equal(t, "b", Envelope{ErrorMessage: "b"}.Detail())
	require.Equal(t, "", Envelope{}.Detail())
}

func TestMarshalJSON(t *testing.T) {
	env, err := Decode([]byte(`{"success":true,"summary":"ok"}`))
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"summary":"ok"}`, string(data))

	data, err = json.Marshal(Failure(&errs.TimeoutError{Timeout: time.Minute}))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":false,"errorMessage":"Command timed out after 1 minute","kind":"timeout"}`, string(data))
}

func TestViews(t *testing.T) {
	env, err := Decode([]byte(`{
		"success": true,
		"solutionPath": "C:\\P\\S.sln",
		"tcVersion": "3.1.4026.17",
		"tcVersionPinned": true,
		"plcProjects": [{"name": "Main", "amsPort": 851}, {"name": "Aux", "amsPort": "852"}],
		"steps": [{"step": 1, "action": "Build", "dryRun": true}],
		"errors": [{"file": "POU.TcPOU", "line": 12, "description": "bad"}]
	}`))
	require.NoError(t, err)

	info := View[InfoResult](env)
	require.True(t, info.TcVersionPinned)
	require.Len(t, info.PlcProjects, 2)
	require.Equal(t, "851", info.PlcProjects[0].AmsPort.String())
	require.Equal(t, "852", info.PlcProjects[1].AmsPort.String())

	deploy := View[DeployResult](env)
	require.Equal(t, "1", deploy.Steps[0].Step.String())
	require.True(t, deploy.Steps[0].DryRun)
	require.Equal(t, "POU.TcPOU", deploy.Errors[0].Source())
	require.Equal(t, "12", deploy.Errors[0].Line.String())

	require.Empty(t, View[BuildResult](Failure(nil)).Summary)
}
