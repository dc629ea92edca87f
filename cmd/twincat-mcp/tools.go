package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"twincat-mcp/internal/tools/catalog"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func newToolsCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Long:  "Print the tool catalog advertised by tools/list, with input schemas.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCatalog(cmd.OutOrStdout(), catalog.Default().List(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json, yaml")
	return cmd
}

func writeCatalog(w io.Writer, tools []catalog.ToolDescriptor, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case outputText, "":
		return writeCatalogText(w, tools)
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{"tools": tools})
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"tools": tools}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

func writeCatalogText(w io.Writer, tools []catalog.ToolDescriptor) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Available tools (%d):\n", len(tools))
	for _, tool := range tools {
		fmt.Fprintf(&b, "\n%s\n  %s\n", tool.Name, tool.Description)
		for _, name := range tool.InputSchema.PropertyNames() {
			prop := tool.InputSchema.Properties[name]
			marker := "optional"
			if tool.InputSchema.IsRequired(name) {
				marker = "required"
			}
			fmt.Fprintf(&b, "  - %s (%s, %s)", name, prop.Type, marker)
			if prop.Default != nil {
				fmt.Fprintf(&b, " default %v", prop.Default)
			}
			fmt.Fprintf(&b, ": %s\n", prop.Description)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
