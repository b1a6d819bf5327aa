package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cveorigin/internal/config"
	"cveorigin/internal/db"
	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/telemetry"
	"cveorigin/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cveorigin",
	Short: "Map repositories to CVE records and find vulnerability-introducing commits",
	Long: `cveorigin resolves GitHub repositories to the vendor/product identities used by
CVE records, and traces fix commits back through git blame to the commit that most
likely introduced the vulnerability.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'cveorigin --help' for usage.")
		exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. An unreachable
// corpus exits with 2 so scripts can tell it apart from bad input or config.
func exitCode(err error) int {
	if cerrors.IsFatal(err) {
		return 2
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cveorigin.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "Directory for output files")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Number of concurrent workers (default: number of CPUs)")
	rootCmd.PersistentFlags().Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Disable the progress bar")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("metrics_port", rootCmd.PersistentFlags().Lookup("metrics-port"))
	viper.BindPFlag("no_progress", rootCmd.PersistentFlags().Lookup("no-progress"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Load(cfgFile)
}

// session is what every batch command needs once configuration is valid.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	ctx    context.Context
	stop   context.CancelFunc
}

// startSession validates configuration, sets up logging and metrics, and
// returns a context cancelled on SIGINT or SIGTERM.
func startSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.FromViper()
	if err != nil {
		return nil, err
	}
	logger := telemetry.InitLogger(cfg.Verbose, cfg.LogFile)

	if cfg.MetricsPort > 0 {
		go func() {
			if err := telemetry.StartMetricsServer(cfg.MetricsPort); err != nil {
				logger.Warn("failed to start metrics server", "port", cfg.MetricsPort, "error", err)
			}
		}()
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &session{cfg: cfg, logger: logger, ctx: ctx, stop: stop}, nil
}

func (s *session) openStore() (db.Store, error) {
	store, err := db.NewStore(s.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	return store, nil
}

// progress returns a progress callback and a function that stops rendering.
// The bar is only drawn on an interactive stderr.
func progress(cmd *cobra.Command, title string) (func(done, total int), func()) {
	errOut := cmd.ErrOrStderr()
	f, ok := errOut.(*os.File)
	if viper.GetBool("no_progress") || !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, func() {}
	}
	p := ui.NewProgress(title, errOut)
	p.Start()
	return p.Update, p.Finish
}

// openInput opens path, with "-" meaning standard input.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}
