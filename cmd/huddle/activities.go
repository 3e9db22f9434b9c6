package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/huddle/internal/cli"
	"github.com/aretw0/huddle/internal/presentation/tui"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var activitiesCmd = &cobra.Command{
	Use:     "activities",
	Aliases: []string{"activity"},
	Short:   "Inspect and manage registered activities",
}

var activitiesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List built-in and registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		all := backend.Runtime.Registry().ListAll()
		rows := make([]tui.ActivityRow, 0, len(all))
		for _, entry := range all {
			rows = append(rows, tui.ActivityRow{Definition: entry.Definition, UserDefined: entry.UserDefined})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Definition.Slug < rows[j].Definition.Slug })

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), rows)
		}
		return render(cmd, tui.ActivitiesMarkdown(rows))
	},
}

var activitiesShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show one activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		entry, ok := backend.Runtime.Registry().ListAll()[args[0]]
		if !ok {
			return &domain.LookupError{Slug: args[0]}
		}
		row := tui.ActivityRow{Definition: entry.Definition, UserDefined: entry.UserDefined}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), row)
		}
		return render(cmd, tui.ActivityMarkdown(row))
	},
}

var activitiesRegisterCmd = &cobra.Command{
	Use:   "register <definition.yaml|json>",
	Short: "Register or replace a user activity from a definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := readDefinition(args[0])
		if err != nil {
			return err
		}

		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := backend.Runtime.RegisterDefinition(cmd.Context(), def); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", def.Slug)
		return nil
	},
}

var activitiesImportCmd = &cobra.Command{
	Use:   "import <catalog-dir>",
	Short: "Register every activity of a markdown catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		res, err := backend.ImportCatalog(cmd.Context(), args[0])
		out := cmd.OutOrStdout()
		for _, slug := range res.Imported {
			fmt.Fprintf(out, "imported %s\n", slug)
		}
		for _, slug := range res.Skipped {
			fmt.Fprintf(out, "skipped  %s (reserved or invalid slug)\n", slug)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
	activitiesCmd.AddCommand(activitiesLsCmd, activitiesShowCmd, activitiesRegisterCmd, activitiesImportCmd)

	activitiesLsCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	activitiesShowCmd.Flags().Bool("json", false, "Print JSON instead of markdown")
}

func openBackend(cmd *cobra.Command) (*cli.Backend, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.OpenBackend(cmd.Context(), cfg, logger, domain.LifecycleHooks{})
}

// readDefinition decodes a definition file. JSON is valid YAML, so one decoder serves both.
func readDefinition(path string) (domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var def domain.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return domain.Definition{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if def.Slug == "" {
		def.Slug = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if def.Metadata.SourceID == "" {
		def.Metadata.SourceID = "file:" + filepath.Base(path)
	}
	if def.Metadata.CreatedAt.IsZero() {
		def.Metadata.CreatedAt = time.Now().UTC()
	}
	def.Metadata.IsUserGenerated = true
	return def, nil
}

// render prints markdown, styled when stdout is a terminal.
func render(cmd *cobra.Command, markdown string) error {
	plain := true
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		plain = !isTerminal(f)
	}
	out, err := tui.NewRenderer(plain)(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
