package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"twincat-mcp/internal/shared/config"
)

type rootOptions struct {
	configFile string
}

// flagKeys maps global flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-file":  "log.file",
	"exe":       "executable.path",
	"timeout":   "process.timeout",
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "twincat-mcp",
		Short: "MCP server exposing TwinCAT automation tools",
		Long: `twincat-mcp serves the TwinCAT build and deployment tools over the Model
Context Protocol on stdio. Each tool call runs TcAutomation.exe once and
returns a human-readable summary of its JSON result.

Examples:
  twincat-mcp                                   # serve on stdio
  twincat-mcp tools --output yaml               # print the tool catalog
  twincat-mcp call twincat_build --arg solutionPath=C:\proj\Plant.sln`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default searches $HOME/.twincat-mcp and . for twincat-mcp.yaml)")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	flags.String("log-file", "", `log file path, "-" for stderr (default ~/.twincat-mcp/twincat-mcp.log)`)
	flags.String("exe", "", "explicit path to TcAutomation.exe")
	flags.Duration("timeout", config.DefaultTimeout, "time budget for a single TcAutomation.exe run")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newToolsCommand(opts))
	root.AddCommand(newCallCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// loadConfig resolves configuration for cmd with its global flags bound.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, config.Metadata, error) {
	loadOpts := make([]config.Option, 0, len(flagKeys)+1)
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return config.Config{}, config.Metadata{}, fmt.Errorf("flag --%s is not registered", name)
		}
		loadOpts = append(loadOpts, config.WithFlag(key, flag))
	}
	return config.Load(loadOpts...)
}
