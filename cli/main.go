package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/engine"
	"github.com/Daedeross/maptool-script.vscode/server/helpers"
	"github.com/Daedeross/maptool-script.vscode/server/lsp_server"
	"github.com/Daedeross/maptool-script.vscode/server/release"
	"github.com/Daedeross/maptool-script.vscode/server/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errCheckFailed makes check exit with status 1 once its diagnostics have
// been printed.
var errCheckFailed = errors.New("check found errors")

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if isVerbose, _ := cmd.Flags().GetBool("verbose"); isVerbose {
		cfg = zap.NewDevelopmentConfig()
	}

	// stdout carries the protocol
	cfg.OutputPaths = []string{"stderr"}
	if logFile, _ := cmd.Flags().GetString("log-file"); len(logFile) != 0 {
		cfg.OutputPaths = []string{logFile}
	}
	return cfg.Build()
}

// configPath returns the --config flag, or the default config file when it
// exists.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); len(path) != 0 {
		return path
	}
	path := helpers.GetConfigFilePath()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

var rootCmd = &cobra.Command{
	Use:     "mtscript",
	Version: release.Version(),
	Short:   "Language server and checker for MapTool macro scripts.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configDir, _ := cmd.Flags().GetString("config-dir"); len(configDir) != 0 {
			helpers.SetConfigDirPath(configDir)
		}
	},
}

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Starts a language server to be consumed by LSP-supported editors",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		listen, _ := cmd.Flags().GetString("listen")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		return lsp_server.Start(lsp_server.Options{
			Listen:      listen,
			ConfigPath:  configPath(cmd),
			MetricsAddr: metricsAddr,
			Logger:      logger,
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Checks macro files and prints their diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		settings := config.Default()
		if path := configPath(cmd); len(path) != 0 {
			if settings, err = config.Load(path); err != nil {
				return err
			}
		}

		includes, _ := cmd.Flags().GetStringSlice("include")
		eng, err := engine.Default(logger)
		if err != nil {
			return err
		}

		checker, err := newChecker(eng, settings, includes)
		if err != nil {
			return err
		}
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			checker.useColor(lipgloss.NewRenderer(os.Stdout))
		}

		summary, err := checker.Check(os.Stdout, args)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "\nChecked %d file/s, %d error/s, %d warning/s.\n", summary.Files, summary.Errors, summary.Warnings)
		if summary.Errors > 0 {
			// the summary above already reports the failure
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return errCheckFailed
		}
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [prefix]",
	Short: "Lists the built-in functions and roll options",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := builtins.DefaultRegistry()
		if err != nil {
			return err
		}

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		listCatalog(os.Stdout, engine.New(registry, nil), prefix)
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Writes the default settings to the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := helpers.GetConfigFilePath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		if _, err := helpers.GetOrInitializeConfigDir(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}

		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()

		if err := config.Write(file, config.Default()); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose mode")
	rootCmd.PersistentFlags().String("config-dir", "", "the directory holding server.toml. To override the default directory, set the MTSCRIPT_CONFIG_DIR environment variable.")
	rootCmd.PersistentFlags().String("config", "", "the settings file to use. Defaults to server.toml inside the config directory.")
	lspCmd.Flags().String("listen", "", "serve clients over TCP on this address instead of stdio")
	lspCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	lspCmd.Flags().String("log-file", "", "write logs to this file instead of stderr")
	checkCmd.Flags().StringSlice("include", store.IncludePatterns(), "glob patterns selecting files inside directories")
}

func main() {
	err := rootCmd.Execute()
	if errors.Is(err, errCheckFailed) {
		os.Exit(1)
	} else if err != nil {
		log.Fatalln(err)
	}
}
