package formatter

import (
	"fmt"
	"strings"

	"twincat-mcp/internal/domain/result"
	"twincat-mcp/internal/tools/catalog"
)

// Build renders twincat_build.
func Build(_ catalog.Arguments, env result.Envelope) string {
	view := result.View[result.BuildResult](env)
	var b strings.Builder
	if env.Success {
		fmt.Fprintf(&b, "%s %s\n", MarkSuccess, orDefault(view.Summary, "Build succeeded"))
		writeDiagnostics(&b, MarkWarnings, view.Warnings, buildSource)
		return b.String()
	}

	fmt.Fprintf(&b, "%s Build failed\n", MarkFailure)
	if msg := orDefault(env.ErrorMessage, env.Error); msg != "" {
		fmt.Fprintf(&b, "\nError: %s\n", msg)
	}
	writeDiagnostics(&b, MarkErrors, view.Errors, buildSource)
	writeDiagnostics(&b, MarkWarnings, view.Warnings, buildSource)
	writeStderr(&b, env)
	return b.String()
}

// Info renders twincat_get_info.
func Info(_ catalog.Arguments, env result.Envelope) string {
	if env.ErrorMessage != "" || (!env.Success && env.Error != "") {
		var b strings.Builder
		fmt.Fprintf(&b, "%s Error: %s", MarkFailure, orDefault(env.ErrorMessage, env.Error))
		writeStderr(&b, env)
		return b.String()
	}

	view := result.View[result.InfoResult](env)
	var b strings.Builder
	fmt.Fprintf(&b, "%s TwinCAT Project Info\n", MarkInfo)
	fmt.Fprintf(&b, "Solution: %s\n", orDefault(view.SolutionPath, unknown))
	fmt.Fprintf(&b, "TwinCAT Version: %s", orDefault(view.TcVersion, unknown))
	if view.TcVersionPinned {
		b.WriteString(" (pinned)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Visual Studio Version: %s\n", orDefault(view.VisualStudioVersion, unknown))
	fmt.Fprintf(&b, "Target Platform: %s\n", orDefault(view.TargetPlatform, unknown))
	b.WriteString("\nPLC Projects:\n")
	if len(view.PlcProjects) == 0 {
		b.WriteString("  (none found)\n")
		return b.String()
	}
	for _, plc := range view.PlcProjects {
		fmt.Fprintf(&b, "  - %s (AMS Port: %s)\n", orDefault(plc.Name, unknown), orDefault(plc.AmsPort.String(), unknown))
	}
	return b.String()
}

// Clean renders twincat_clean.
func Clean(_ catalog.Arguments, env result.Envelope) string {
	if !env.Success {
		return failure("Clean", env)
	}
	view := result.View[result.MessageResult](env)
	return fmt.Sprintf("%s %s", MarkSuccess, orDefault(view.Message, "Solution cleaned successfully"))
}

// SetTarget renders twincat_set_target.
func SetTarget(args catalog.Arguments, env result.Envelope) string {
	if !env.Success {
		return failure("Set target", env)
	}
	view := result.View[result.SetTargetResult](env)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", MarkSuccess, orDefault(view.Message, "Target set successfully"))
	fmt.Fprintf(&b, "Previous target: %s\n", orDefault(view.PreviousTarget, unknown))
	fmt.Fprintf(&b, "New target: %s", orDefault(view.NewTarget, orDefault(args.String(catalog.ArgAmsNetID), unknown)))
	return b.String()
}

// Activate renders twincat_activate.
func Activate(_ catalog.Arguments, env result.Envelope) string {
	if !env.Success {
		return failure("Activation", env)
	}
	return targetLine(env, "Configuration activated")
}

// Restart renders twincat_restart.
func Restart(_ catalog.Arguments, env result.Envelope) string {
	if !env.Success {
		return failure("Restart", env)
	}
	return targetLine(env, "TwinCAT restarted")
}

func targetLine(env result.Envelope, fallback string) string {
	view := result.View[result.TargetResult](env)
	return fmt.Sprintf("%s %s\nTarget: %s", MarkSuccess, orDefault(view.Message, fallback), orDefault(view.TargetNetID, unknown))
}

// Deploy renders twincat_deploy. A dry-run request marks the headline and
// every step, whatever the executable reported per step.
func Deploy(args catalog.Arguments, env result.Envelope) string {
	view := result.View[result.DeployResult](env)
	var b strings.Builder
	if !env.Success {
		fmt.Fprintf(&b, "%s Deployment failed: %s\n", MarkFailure, failureDetail(env))
		writeDiagnostics(&b, "🔴 Build Errors:", view.Errors, deploySource)
		writeStderr(&b, env)
		return b.String()
	}

	dryRun := args.Bool(catalog.ArgDryRun) || view.DryRun
	if dryRun {
		b.WriteString(MarkDryRun)
	}
	fmt.Fprintf(&b, "%s %s\n\n", MarkSuccess, orDefault(view.Message, "Deployment successful"))
	fmt.Fprintf(&b, "Target: %s\n", orDefault(view.TargetNetID, orDefault(args.String(catalog.ArgAmsNetID), unknown)))
	fmt.Fprintf(&b, "Deployed PLCs: %s\n\n", strings.Join(view.DeployedPlcs, ", "))

	if len(view.Steps) > 0 {
		fmt.Fprintf(&b, "%s Deployment Steps:\n", MarkInfo)
		for _, step := range view.Steps {
			note := ""
			if step.DryRun || dryRun {
				note = " (dry run)"
			}
			fmt.Fprintf(&b, "  %s. %s%s\n", orDefault(step.Step.String(), "?"), orDefault(step.Action, unknown), note)
		}
	}
	return b.String()
}

// Generic renders a tool without a dedicated renderer.
func Generic(_ catalog.Arguments, env result.Envelope) string {
	if !env.Success {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s", MarkFailure, failureDetail(env))
		writeStderr(&b, env)
		return b.String()
	}
	view := result.View[result.MessageResult](env)
	return fmt.Sprintf("%s %s", MarkSuccess, orDefault(view.Message, "Done"))
}
