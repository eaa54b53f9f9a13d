package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/config"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/logging"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/render"
)

const version = "0.1.0"

// failureAnnotation names the action a command reports when it fails.
const failureAnnotation = "bitdoc/failure"

var (
	configPath  string
	logLevel    string
	stateDir    string
	colorMode   string
	versionFlag bool
	rootCmd     *cobra.Command
)

func getBuilderTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Printf("bitdoc %s\n", version)
	fmt.Printf("Built: %s\n", getBuilderTimestamp())
}

func init() {
	rootCmd = &cobra.Command{
		Use:           "bitdoc",
		Short:         "Document the bits of a byte sequence",
		Long:          `Edit a byte sequence bit by bit, group bits into named fields and decode them as flags or values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if versionFlag {
				printVersion()
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file (defaults to $BITDOC_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory holding the saved session")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always or never")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")

	rootCmd.AddCommand(
		newSessionCmd(),
		newShowCmd(),
		newExportCmd(),
		newImportCmd(),
		newCheckCmd(),
		newHexCmd(),
		newFlagsCmd(),
		newReportCmd(),
		newResetCmd(),
		newConfigCmd(),
	)
}

func main() {
	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		printVersion()
		os.Exit(0)
	}

	if cmd, err := rootCmd.ExecuteC(); err != nil {
		fmt.Fprintln(os.Stderr, failureMessage(cmd, err))
		os.Exit(1)
	}
}

// failureMessage prefixes err with the failed command's action, as in
// "Import failed: ...".
func failureMessage(cmd *cobra.Command, err error) string {
	if cmd == nil {
		return err.Error()
	}
	action := cmd.Annotations[failureAnnotation]
	if action == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

// loadConfig resolves the configuration file, the environment and the
// persistent flags, in increasing precedence.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) hclog.Logger {
	return logging.NewLogger("bitdoc", cfg.LogLevel, nil)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newRenderer() *render.Renderer {
	switch colorMode {
	case "always":
		return render.New(true)
	case "never":
		return render.New(false)
	default:
		return render.New(isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")
	}
}
