// Package argv turns validated tool arguments into TcAutomation.exe command
// lines. Every builder is pure: identical input yields an identical, freshly
// allocated token slice.
package argv

import (
	"twincat-mcp/internal/tools/catalog"
)

// Subcommands understood by TcAutomation.exe.
const (
	CommandBuild     = "build"
	CommandInfo      = "info"
	CommandClean     = "clean"
	CommandSetTarget = "set-target"
	CommandActivate  = "activate"
	CommandRestart   = "restart"
	CommandDeploy    = "deploy"
)

// Flags passed to TcAutomation.exe.
const (
	FlagSolution  = "--solution"
	FlagClean     = "--clean"
	FlagTcVersion = "--tcversion"
	FlagAmsNetID  = "--amsnetid"
	FlagPlc       = "--plc"
	FlagSkipBuild = "--skip-build"
	FlagDryRun    = "--dry-run"
)

// Builder maps validated arguments to the argument vector that follows the subcommand.
type Builder func(args catalog.Arguments) []string

type tokens []string

func start(args catalog.Arguments) tokens {
	return tokens{FlagSolution, args.String(catalog.ArgSolutionPath)}
}

func (t tokens) value(flag, v string) tokens {
	if v == "" {
		return t
	}
	return append(t, flag, v)
}

func (t tokens) flag(flag string, on bool) tokens {
	if !on {
		return t
	}
	return append(t, flag)
}

// Build: --solution P [--clean] [--tcversion V]
func Build(args catalog.Arguments) []string {
	return start(args).
		flag(FlagClean, args.Bool(catalog.ArgClean)).
		value(FlagTcVersion, args.String(catalog.ArgTcVersion))
}

// Info: --solution P
func Info(args catalog.Arguments) []string {
	return start(args)
}

// Clean: --solution P [--tcversion V]
func Clean(args catalog.Arguments) []string {
	return start(args).
		value(FlagTcVersion, args.String(catalog.ArgTcVersion))
}

// SetTarget: --solution P --amsnetid A [--tcversion V]
func SetTarget(args catalog.Arguments) []string {
	return append(start(args), FlagAmsNetID, args.String(catalog.ArgAmsNetID)).
		value(FlagTcVersion, args.String(catalog.ArgTcVersion))
}

// Activate: --solution P [--amsnetid A] [--tcversion V]
func Activate(args catalog.Arguments) []string {
	return targeted(args)
}

// Restart: --solution P [--amsnetid A] [--tcversion V]
func Restart(args catalog.Arguments) []string {
	return targeted(args)
}

func targeted(args catalog.Arguments) tokens {
	return start(args).
		value(FlagAmsNetID, args.String(catalog.ArgAmsNetID)).
		value(FlagTcVersion, args.String(catalog.ArgTcVersion))
}

// Deploy: --solution P --amsnetid A [--plc N] [--tcversion V] [--skip-build] [--dry-run]
func Deploy(args catalog.Arguments) []string {
	return append(start(args), FlagAmsNetID, args.String(catalog.ArgAmsNetID)).
		value(FlagPlc, args.String(catalog.ArgPlcName)).
		value(FlagTcVersion, args.String(catalog.ArgTcVersion)).
		flag(FlagSkipBuild, args.Bool(catalog.ArgSkipBuild)).
		flag(FlagDryRun, args.Bool(catalog.ArgDryRun))
}
