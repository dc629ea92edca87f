package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"twincat-mcp/internal/domain/result"
	errs "twincat-mcp/internal/shared/errors"
	"twincat-mcp/internal/tools/catalog"
)

func doc(t *testing.T, raw string) result.Envelope {
	t.Helper()
	env, err := result.Decode([]byte(raw))
	require.NoError(t, err)
	return env
}

func TestToolFormatterRender(t *testing.T) {
	tf := NewToolFormatter()

	cases := []struct {
		name string
		tool string
		args catalog.Arguments
		env  string
		want string
	}{
		{
			name: "build success with warnings",
			tool: catalog.ToolBuild,
			env: `{"success": true, "summary": "Build succeeded: 0 errors, 1 warning",
				"warnings": [{"fileName": "MAIN.TcPOU", "line": 7, "description": "unused variable"}]}`,
			want: "✅ Build succeeded: 0 errors, 1 warning\n\n⚠️ Warnings:\n  - MAIN.TcPOU:7: unused variable\n",
		},
		{
			name: "build success default summary",
			tool: catalog.ToolBuild,
			env:  `{"success": true}`,
			want: "✅ Build succeeded\n",
		},
		{
			name: "build failure",
			tool: catalog.ToolBuild,
			env: `{"success": false, "errorMessage": "Build failed with 1 error",
				"errors": [{"fileName": "FB_Axis.TcPOU", "line": "42", "description": "C0077: Unknown type"}]}`,
			want: "❌ Build failed\n\nError: Build failed with 1 error\n\n🔴 Errors:\n  - FB_Axis.TcPOU:42: C0077: Unknown type\n",
		},
		{
			name: "info",
			tool: catalog.ToolGetInfo,
			env: `{"success": true, "solutionPath": "C:\\P\\S.sln", "tcVersion": "3.1.4026.17", "tcVersionPinned": true,
				"visualStudioVersion": "17.0", "targetPlatform": "TwinCAT RT (x64)",
				"plcProjects": [{"name": "Main", "amsPort": 851}]}`,
			want: "📋 TwinCAT Project Info\nSolution: C:\\P\\S.sln\nTwinCAT Version: 3.1.4026.17 (pinned)\n" +
				"Visual Studio Version: 17.0\nTarget Platform: TwinCAT RT (x64)\n\nPLC Projects:\n  - Main (AMS Port: 851)\n",
		},
		{
			name: "info with missing fields",
			tool: catalog.ToolGetInfo,
			env:  `{"success": true}`,
			want: "📋 TwinCAT Project Info\nSolution: Unknown\nTwinCAT Version: Unknown\n" +
				"Visual Studio Version: Unknown\nTarget Platform: Unknown\n\nPLC Projects:\n  (none found)\n",
		},
		{
			name: "info error",
			tool: catalog.ToolGetInfo,
			env:  `{"success": false, "errorMessage": "Solution file not found"}`,
			want: "❌ Error: Solution file not found",
		},
		{
			name: "clean success",
			tool: catalog.ToolClean,
			env:  `{"success": true}`,
			want: "✅ Solution cleaned successfully",
		},
		{
			name: "clean failure uses error",
			tool: catalog.ToolClean,
			env:  `{"success": false, "error": "DTE not available"}`,
			want: "❌ Clean failed: DTE not available",
		},
		{
			name: "clean failure without detail",
			tool: catalog.ToolClean,
			env:  `{"success": false}`,
			want: "❌ Clean failed: Unknown error",
		},
		{
			name: "set target falls back to requested id",
			tool: catalog.ToolSetTarget,
			args: catalog.Arguments{catalog.ArgAmsNetID: "5.22.157.86.1.1"},
			env:  `{"success": true, "previousTarget": "Local"}`,
			want: "✅ Target set successfully\nPrevious target: Local\nNew target: 5.22.157.86.1.1",
		},
		{
			name: "activate",
			tool: catalog.ToolActivate,
			env:  `{"success": true, "targetNetId": "5.22.157.86.1.1"}`,
			want: "✅ Configuration activated\nTarget: 5.22.157.86.1.1",
		},
		{
			name: "restart failure",
			tool: catalog.ToolRestart,
			env:  `{"success": false, "error": "ADS timeout"}`,
			want: "❌ Restart failed: ADS timeout",
		},
		{
			name: "deploy success",
			tool: catalog.ToolDeploy,
			args: catalog.Arguments{catalog.ArgAmsNetID: "1.2.3.4.1.1"},
			env: `{"success": true, "message": "Deployment complete", "deployedPlcs": ["Main", "Aux"],
				"steps": [{"step": 1, "action": "Build solution"}, {"step": 2, "action": "Activate configuration"}]}`,
			want: "✅ Deployment complete\n\nTarget: 1.2.3.4.1.1\nDeployed PLCs: Main, Aux\n\n" +
				"📋 Deployment Steps:\n  1. Build solution\n  2. Activate configuration\n",
		},
		{
			name: "deploy failure with build errors",
			tool: catalog.ToolDeploy,
			env: `{"success": false, "error": "Build failed",
				"errors": [{"file": "MAIN.TcPOU", "line": 3, "description": "syntax error"}]}`,
			want: "❌ Deployment failed: Build failed\n\n🔴 Build Errors:\n  - MAIN.TcPOU:3: syntax error\n",
		},
		{
			name: "unknown tool",
			tool: "twincat_other",
			env:  `{"success": true}`,
			want: "✅ Done",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tf.RenderCall(tc.tool, tc.args, doc(t, tc.env)))
		})
	}
}

func TestDeployDryRunMarksEveryStep(t *testing.T) {
	env := doc(t, `{"success": true, "targetNetId": "1.2.3.4.1.1", "deployedPlcs": ["Main"],
		"steps": [{"step": 1, "action": "Build solution", "dryRun": true}, {"step": 2, "action": "Restart TwinCAT"}]}`)

	out := NewToolFormatter().RenderCall(catalog.ToolDeploy, catalog.Arguments{catalog.ArgDryRun: true}, env)
	require.True(t, strings.HasPrefix(out, "🔍 DRY RUN: ✅ Deployment successful\n"))
	require.Contains(t, out, "  1. Build solution (dry run)\n")
	require.Contains(t, out, "  2. Restart TwinCAT (dry run)\n")
}

func TestBridgeFailuresShowDetailAndStderr(t *testing.T) {
	tf := NewToolFormatter()

	timeout := result.Failure(&errs.TimeoutError{Timeout: 5 * time.Minute})
	require.Equal(t, "❌ Activation failed: Command timed out after 5 minutes", tf.Render(catalog.ToolActivate, timeout))
	require.Equal(t, "❌ Build failed\n\nError: Command timed out after 5 minutes\n", tf.Render(catalog.ToolBuild, timeout))
	require.Equal(t, "❌ Error: Command timed out after 5 minutes", tf.Render(catalog.ToolGetInfo, timeout))

	invalid := result.Failure(&errs.ProcessOutputError{Stdout: "not-json", Stderr: "stack trace\n"})
	require.Equal(t, "❌ Clean failed: Invalid JSON output: not-json\n\nStderr:\nstack trace\n", tf.Render(catalog.ToolClean, invalid))

	notFound := result.Failure(&errs.NotFoundError{Executable: "TcAutomation.exe", Searched: []string{"/a", "/b"}})
	out := tf.Render(catalog.ToolDeploy, notFound)
	require.True(t, strings.HasPrefix(out, "❌ Deployment failed: TcAutomation.exe not found."))
	require.Contains(t, out, "  - /a\n  - /b\n")
}

func TestRenderIsIdempotent(t *testing.T) {
	tf := NewToolFormatter()
	env := doc(t, `{"success": true, "steps": [{"step": 1, "action": "Build"}], "deployedPlcs": ["Main"]}`)
	args := catalog.Arguments{catalog.ArgDryRun: true}
	for _, tool := range []string{catalog.ToolBuild, catalog.ToolGetInfo, catalog.ToolDeploy, "other"} {
		require.Equal(t, tf.RenderCall(tool, args, env), tf.RenderCall(tool, args, env), tool)
	}
}

func TestMissingTargetFallsBackToUnknown(t *testing.T) {
	tf := NewToolFormatter()
	env := doc(t, `{"success": true}`)

	require.Equal(t, "✅ Target set successfully\nPrevious target: Unknown\nNew target: Unknown",
		tf.Render(catalog.ToolSetTarget, env))
	require.Contains(t, tf.Render(catalog.ToolDeploy, env), "Target: Unknown\n")

	withArg := catalog.Arguments{catalog.ArgAmsNetID: "5.22.157.86.1.1"}
	require.Contains(t, tf.RenderCall(catalog.ToolSetTarget, withArg, env), "New target: 5.22.157.86.1.1")
	require.Contains(t, tf.RenderCall(catalog.ToolDeploy, withArg, env), "Target: 5.22.157.86.1.1\n")
}
