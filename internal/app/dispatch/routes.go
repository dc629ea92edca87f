package dispatch

import (
	"twincat-mcp/internal/presentation/formatter"
	"twincat-mcp/internal/tools/argv"
	"twincat-mcp/internal/tools/catalog"
)

// Route binds a tool to the executable subcommand, its argument builder and
// its renderer.
type Route struct {
	Command string
	Build   argv.Builder
	Render  formatter.RenderFunc
}

// DefaultRoutes returns the route table for every TwinCAT tool.
func DefaultRoutes() map[string]Route {
	return map[string]Route{
		catalog.ToolBuild:     {Command: argv.CommandBuild, Build: argv.Build, Render: formatter.Build},
		catalog.ToolGetInfo:   {Command: argv.CommandInfo, Build: argv.Info, Render: formatter.Info},
		catalog.ToolClean:     {Command: argv.CommandClean, Build: argv.Clean, Render: formatter.Clean},
		catalog.ToolSetTarget: {Command: argv.CommandSetTarget, Build: argv.SetTarget, Render: formatter.SetTarget},
		catalog.ToolActivate:  {Command: argv.CommandActivate, Build: argv.Activate, Render: formatter.Activate},
		catalog.ToolRestart:   {Command: argv.CommandRestart, Build: argv.Restart, Render: formatter.Restart},
		catalog.ToolDeploy:    {Command: argv.CommandDeploy, Build: argv.Deploy, Render: formatter.Deploy},
	}
}
