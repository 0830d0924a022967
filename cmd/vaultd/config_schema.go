package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/cloudvault/vaultd/internal/config"
)

// configSchemaCmd emits a JSON Schema for config.Config, for IDE
// autocompletion and config-file validation, mirroring the teacher's
// cmd/dfs/commands/config/schema.go.
func configSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config-schema",
		Short: "Print a JSON Schema for the server configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := jsonschema.Reflector{
				AllowAdditionalProperties: false,
				DoNotReference:            true,
			}

			schema := reflector.Reflect(&config.Config{})
			schema.Version = "https://json-schema.org/draft/2020-12/schema"
			schema.Title = "vaultd Configuration"
			schema.Description = "Configuration schema for the vaultd file storage server"

			schemaJSON, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("generate schema: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, schemaJSON, 0o644); err != nil {
					return fmt.Errorf("write schema file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", output)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
