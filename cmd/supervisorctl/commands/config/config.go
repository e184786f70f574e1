// Package config implements "supervisorctl config ..." subcommands:
// initializing a config file, printing the effective configuration, and
// emitting a JSON Schema for it, mirroring dfsctl's self-describing
// configuration commands.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/webots/supervisor/pkg/config"
)

// Cmd is the "config" command group, mounted on the root command.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize supervisorctl's daemon configuration",
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}

var initConfigPath string
var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initConfigPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if !initForce {
			if config.DefaultConfigExists() && path == config.GetDefaultConfigPath() {
				return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", path)
			}
		}

		cfg := config.GetDefaultConfig()
		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

var showConfigPath string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(showConfigPath)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Emit a JSON Schema describing the configuration file",
	Long: `schema reflects pkg/config.Config into a JSON Schema document, the
same self-describing-configuration convention dfsctl's "init" command
family follows, so editors and validators can check a config file
without consulting documentation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := &jsonschema.Reflector{
			ExpandedStruct: true,
			DoNotReference: true,
		}
		schema := reflector.Reflect(&config.Config{})
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initConfigPath, "config", "", "Path to write the configuration file to (default: the XDG config location)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	showCmd.Flags().StringVar(&showConfigPath, "config", "", "Path to the configuration file (default: the XDG config location)")
}
