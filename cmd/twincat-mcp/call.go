package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type callOptions struct {
	args     []string
	jsonArgs string
}

func newCallCommand(root *rootOptions) *cobra.Command {
	opts := &callOptions{}
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Run one tool call and print its result",
		Long: `Run a single tool call through the same validation, locking and rendering
as the MCP server, then print the rendered text. Exits with status 1 when the
call fails.

Examples:
  twincat-mcp call twincat_get_info --arg solutionPath=C:\proj\Plant.sln
  twincat-mcp call twincat_deploy --json '{"solutionPath":"C:\\proj\\Plant.sln","amsNetId":"5.22.157.86.1.1","dryRun":true}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.args, "arg", "a", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.jsonArgs, "json", "", "tool arguments as a JSON object")
	return cmd
}

func runCall(cmd *cobra.Command, root *rootOptions, opts *callOptions, tool string) error {
	args, err := parseCallArgs(opts.jsonArgs, opts.args)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	container, err := buildContainer(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		_ = container.Cleanup(cmd.Context())
	}()

	res := container.Dispatcher.Dispatch(cmd.Context(), tool, args)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, colorize(res.Text, res.IsError, colorEnabled(out)))
	if res.IsError {
		return &ExitCodeError{Code: 1}
	}
	return nil
}

// parseCallArgs merges a JSON object with key=value pairs; pairs win.
// Pair values stay strings and are coerced by catalog validation.
func parseCallArgs(jsonArgs string, pairs []string) (map[string]any, error) {
	args := map[string]any{}
	if trimmed := strings.TrimSpace(jsonArgs); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return nil, fmt.Errorf("--json must be a JSON object: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--arg %q: expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func colorEnabled(w io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// colorize tints the headline green or red, leaving detail lines plain.
func colorize(text string, isError, enabled bool) string {
	if !enabled {
		return text
	}
	c := color.New(color.FgGreen, color.Bold)
	if isError {
		c = color.New(color.FgRed, color.Bold)
	}
	c.EnableColor()

	headline, rest, found := strings.Cut(text, "\n")
	if !found {
		return c.Sprint(headline)
	}
	return c.Sprint(headline) + "\n" + rest
}
