package catalog

// Tool names.
const (
	ToolBuild     = "twincat_build"
	ToolGetInfo   = "twincat_get_info"
	ToolClean     = "twincat_clean"
	ToolSetTarget = "twincat_set_target"
	ToolActivate  = "twincat_activate"
	ToolRestart   = "twincat_restart"
	ToolDeploy    = "twincat_deploy"
)

// Argument names shared by the tools.
const (
	ArgSolutionPath = "solutionPath"
	ArgClean        = "clean"
	ArgTcVersion    = "tcVersion"
	ArgAmsNetID     = "amsNetId"
	ArgPlcName      = "plcName"
	ArgSkipBuild    = "skipBuild"
	ArgDryRun       = "dryRun"
)

const (
	solutionPathDesc   = "Full path to the TwinCAT .sln file"
	tcVersionDesc      = "Force specific TwinCAT version. Optional."
	amsNetIDDesc       = "Target AMS Net ID (e.g., '5.22.157.86.1.1')"
	optionalAmsNetDesc = "Target AMS Net ID. Optional - uses project default if not specified."
)

type namedProperty struct {
	name string
	Property
}

func stringProp(name, description string) namedProperty {
	return namedProperty{name: name, Property: Property{Type: "string", Description: description}}
}

func boolProp(name, description string, def bool) namedProperty {
	return namedProperty{name: name, Property: Property{Type: "boolean", Description: description, Default: def}}
}

func schema(required []string, props ...namedProperty) InputSchema {
	s := InputSchema{
		Type:       "object",
		Properties: make(map[string]Property, len(props)),
		Required:   required,
	}
	for _, p := range props {
		s.Properties[p.name] = p.Property
		s.order = append(s.order, p.name)
	}
	return s
}

// Descriptors returns the TwinCAT tool descriptors in advertised order.
func Descriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        ToolBuild,
			Description: "Build a TwinCAT solution and return any compile errors or warnings. Use this to validate TwinCAT/PLC code changes.",
			InputSchema: schema([]string{ArgSolutionPath},
				stringProp(ArgSolutionPath, solutionPathDesc),
				boolProp(ArgClean, "Clean solution before building (default: true)", true),
				stringProp(ArgTcVersion, "Force specific TwinCAT version (e.g., '3.1.4026.17'). Optional."),
			),
		},
		{
			Name:        ToolGetInfo,
			Description: "Get information about a TwinCAT solution including version, PLC projects, and configuration.",
			InputSchema: schema([]string{ArgSolutionPath},
				stringProp(ArgSolutionPath, solutionPathDesc),
			),
		},
		{
			Name:        ToolClean,
			Description: "Clean a TwinCAT solution (remove build artifacts).",
			InputSchema: schema([]string{ArgSolutionPath},
				stringProp(ArgSolutionPath, solutionPathDesc),
				stringProp(ArgTcVersion, tcVersionDesc),
			),
		},
		{
			Name:        ToolSetTarget,
			Description: "Set the target AMS Net ID for deployment without activating.",
			InputSchema: schema([]string{ArgSolutionPath, ArgAmsNetID},
				stringProp(ArgSolutionPath, solutionPathDesc),
				stringProp(ArgAmsNetID, amsNetIDDesc),
				stringProp(ArgTcVersion, tcVersionDesc),
			),
		},
		{
			Name:        ToolActivate,
			Description: "Activate TwinCAT configuration on the target PLC. This downloads the configuration to the target.",
			InputSchema: schema([]string{ArgSolutionPath},
				stringProp(ArgSolutionPath, solutionPathDesc),
				stringProp(ArgAmsNetID, optionalAmsNetDesc),
				stringProp(ArgTcVersion, tcVersionDesc),
			),
		},
		{
			Name:        ToolRestart,
			Description: "Restart TwinCAT runtime on the target PLC.",
			InputSchema: schema([]string{ArgSolutionPath},
				stringProp(ArgSolutionPath, solutionPathDesc),
				stringProp(ArgAmsNetID, optionalAmsNetDesc),
				stringProp(ArgTcVersion, tcVersionDesc),
			),
		},
		{
			Name:        ToolDeploy,
			Description: "Full deployment workflow: build solution, activate boot project, activate configuration, and restart TwinCAT on target PLC.",
			InputSchema: schema([]string{ArgSolutionPath, ArgAmsNetID},
				stringProp(ArgSolutionPath, solutionPathDesc),
				stringProp(ArgAmsNetID, amsNetIDDesc),
				stringProp(ArgPlcName, "Deploy only this PLC project. Optional - deploys all PLCs if not specified."),
				stringProp(ArgTcVersion, tcVersionDesc),
				boolProp(ArgSkipBuild, "Skip building the solution (default: false)", false),
				boolProp(ArgDryRun, "Show what would be done without making changes (default: false)", false),
			),
		},
	}
}

// Default returns the catalog of TwinCAT tools.
func Default() *Catalog {
	return MustNew(Descriptors()...)
}
