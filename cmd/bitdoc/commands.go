package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/payload"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/config"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/report"
)

var encodingUsage = "Encoding: " + strings.Join(payload.Names(), ", ") + " (defaults to the configured encoding)"

// openWorkspace loads the configuration and the saved session. Writing
// commands pass lock=true and fail while an interactive session runs.
func openWorkspace(lock bool) (*pkg.Workspace, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	ws := pkg.OpenWorkspace(cfg, newLogger(cfg))
	if lock {
		if err := ws.Lock(); err != nil {
			return nil, cfg, err
		}
	}
	return ws, cfg, nil
}

// readInput resolves a positional argument: @file reads a file, - reads
// stdin, anything else is taken literally.
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	return readArg(arg)
}

func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(path, []byte(text+"\n"), 0o644)
}

func newShowCmd() *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:         "show",
		Annotations: map[string]string{failureAnnotation: "Show"},
		Short:       "Render the saved session",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := openWorkspace(false)
			if err != nil {
				return err
			}
			r := newRenderer()
			if groupID == "" {
				fmt.Fprint(cmd.OutOrStdout(), r.View(ws.Session))
				return nil
			}
			g, ok := ws.Session.Store().Get(groupID)
			if !ok {
				return fmt.Errorf("%w: %s", bverrors.ErrGroupNotFound, groupID)
			}
			out, _ := ws.Session.Output(groupID)
			fmt.Fprint(cmd.OutOrStdout(), r.Detail(g, out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "Show one group with its source")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		setBits  bool
		encoding string
		output   string
	)
	cmd := &cobra.Command{
		Use:         "export",
		Annotations: map[string]string{failureAnnotation: "Export"},
		Short:       "Print the saved session as a configuration string",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cfg, err := openWorkspace(false)
			if err != nil {
				return err
			}
			if encoding == "" {
				encoding = cfg.Encoding
			}
			text, err := ws.Session.ExportString(encoding, setBits)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, text)
		},
	}
	cmd.Flags().BoolVar(&setBits, "set-bits", false, "Include the list of set bits")
	cmd.Flags().StringVar(&encoding, "encoding", "", encodingUsage)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:         "import <string|@file|->",
		Annotations: map[string]string{failureAnnotation: "Import"},
		Short:       "Replace the saved session with a configuration string",
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cfg, err := openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()
			if encoding == "" {
				encoding = cfg.Encoding
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ws.Session.ImportString(text, encoding); err != nil {
				return err
			}
			if !ws.Save() {
				return fmt.Errorf("could not write %s", ws.Slot.Path())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bytes and %d groups.\n",
				ws.Session.Grid().Len(), ws.Session.Store().Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", "", encodingUsage)
	return cmd
}

func newCheckCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:         "check <string|@file|->",
		Annotations: map[string]string{failureAnnotation: "Check"},
		Short:       "Verify a configuration string without importing it",
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if encoding == "" {
				encoding = cfg.Encoding
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			v, err := pkg.VerifyConfigWithLogger(text, encoding, newLogger(cfg))
			if err != nil {
				return err
			}
			for _, c := range v.Checks {
				mark := "✓"
				if !c.OK {
					mark = "✗"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-9s %s\n", mark, c.Name, c.Detail)
			}
			if !v.Passed() {
				return fmt.Errorf("%w: %d of %d checks failed", pkg.ErrVerificationFailed, v.Failures(), len(v.Checks))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", "", encodingUsage)
	return cmd
}

func newHexCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:         "hex <text>",
		Annotations: map[string]string{failureAnnotation: "Hex"},
		Short:       "Normalize hex text, optionally loading it into the saved session",
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if !apply {
				b, err := grid.ParseHex(text)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), grid.FormatHex(b))
				return nil
			}
			ws, _, err := openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()
			if err := ws.Session.SetHex(text); err != nil {
				return err
			}
			ws.Save()
			fmt.Fprintln(cmd.OutOrStdout(), ws.Session.Grid().Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Load the value into the saved session")
	return cmd
}

func newFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "flags <group-id> <json|@file>",
		Annotations: map[string]string{failureAnnotation: "Flags"},
		Short:       "Replace a group's flags description (comments and trailing commas allowed)",
		Args:        cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()
			source, err := flagsSource(args[1])
			if err != nil {
				return err
			}
			flagsType := groups.TypeFlags
			patch := groups.Patch{Type: &flagsType, FlagsDescriptionSource: &source}
			if err := ws.Session.UpdateGroup(args[0], patch); err != nil {
				return err
			}
			ws.Save()
			out, _ := ws.Session.Output(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), out.Display())
			if out.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", out.Error)
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:         "report",
		Annotations: map[string]string{failureAnnotation: "Report"},
		Short:       "Write a PDF, Markdown or HTML document describing every group",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := openWorkspace(false)
			if err != nil {
				return err
			}
			cmd.Annotations[failureAnnotation] = strings.ToUpper(format) + " export"
			path, err := writeReport(ws, format, output, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "Report format: "+strings.Join(report.FormatNames(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to a timestamped name)")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reset",
		Annotations: map[string]string{failureAnnotation: "Reset"},
		Short:       "Clear the saved session",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()
			ws.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "Session reset.")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Annotations: map[string]string{failureAnnotation: "Config"},
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "# saved session: %s\n", cfg.StateRoot())
			return nil
		},
	}
}
