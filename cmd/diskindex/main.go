package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/daemon"
	"github.com/fenilsonani/diskindex/internal/progress"
	"github.com/fenilsonani/diskindex/internal/reporter"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"github.com/fenilsonani/diskindex/internal/ui"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
	"github.com/fenilsonani/diskindex/internal/volume"
	"github.com/fenilsonani/diskindex/pkg/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  string
	envFile     string
	verbose     bool
	quiet       bool
	metricsFile string
	outputFmt   string
	outputFile  string
	limit       int
	testConfig  bool
	runNow      bool
	initConfig  bool
)

const summaryTopN = 10

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "diskindex",
	Short: "Incremental disk usage index",
	Long: `diskindex walks a directory tree with du and keeps a per-folder cache of
the largest items, so usage can be browsed instantly and refreshed in the
background.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Index a directory tree",
	Long: `Runs du over root (the configured root by default) and writes per-folder
snapshots as results arrive. Interrupting a scan keeps what was indexed so far.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		root, err := a.resolveRoot(args)
		if err != nil {
			return err
		}

		var onProgress scanner.ProgressFunc
		var live *ui.LiveProgress
		if !quiet {
			live = ui.NewLiveProgress(root)
			live.Start()
			onProgress = live.Update
		}

		start := time.Now()
		scanErr := a.scanner.Scan(cmd.Context(), root, onProgress)

		if live != nil {
			live.Finish()
		}

		path := metricsFile
		if path == "" {
			path = a.cfg.MetricsFile
		}
		if path != "" {
			if err := a.metrics.WriteTextfile(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		if scanErr != nil {
			if errors.Is(scanErr, context.Canceled) {
				return fmt.Errorf("scan interrupted, partial results were kept: %w", scanErr)
			}
			return fmt.Errorf("scan failed: %w", scanErr)
		}

		if quiet {
			return nil
		}

		fmt.Printf("Indexed %s in %s\n\n", root, progress.FormatDuration(time.Since(start)))
		top := a.store.GlobalIndex()
		if len(top) > summaryTopN {
			top = top[:summaryTopN]
		}
		rptr := reporter.New(os.Stdout, reporter.FormatSummary)
		return rptr.Report(reporter.FromEntries("Largest items", top))
	},
}

var showCmd = &cobra.Command{
	Use:   "show [dir]",
	Short: "Show the cached listing of a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		dir, err := a.resolvePath(args)
		if err != nil {
			return err
		}

		snap := a.store.Get(dir)
		if snap == nil {
			fmt.Printf("No data for %s yet. Run 'diskindex scan' first.\n", dir)
			return nil
		}

		return report(reporter.FromSnapshot(dir, snap))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index of largest items",
	Long:  `Case-insensitive name search over the largest items found by the last complete scan. With no query, lists them all.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if !a.store.HasIndex() {
			fmt.Println("No index yet. Run 'diskindex scan' first.")
			return nil
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}

		title := "Largest items"
		if query != "" {
			title = fmt.Sprintf("Matches for %q", query)
		}
		return report(reporter.FromEntries(title, a.store.SearchGlobal(query, limit)))
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Drop a deleted path from the cache",
	Long: `Removes path from its folder snapshot and the search index, and subtracts
its size from every cached ancestor up to the scan root. Use it after deleting
something so the cache stays accurate without a rescan.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		path, err := a.resolvePath(args)
		if err != nil {
			return err
		}
		if err := a.guard.ValidateWithinRoot(path, a.root); err != nil {
			return err
		}

		removed, err := a.store.ForgetPath(path, a.root)
		if err != nil {
			return fmt.Errorf("failed to forget %s: %w", path, err)
		}
		if removed == 0 {
			fmt.Printf("%s is not in the cache\n", path)
			return nil
		}

		fmt.Printf("Forgot %s (%s)\n", path, utils.FormatBytes(removed))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Printf("Cache cleared: %s\n", a.store.DataDir())
		return nil
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume [path]",
	Short: "Show capacity of the volume holding path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		path, err := a.resolvePath(args)
		if err != nil {
			return err
		}

		v := volume.Fetch(path)
		if v.TotalBytes == 0 {
			fmt.Printf("Volume: %s (capacity unknown)\n", path)
			return nil
		}

		used := v.TotalBytes - min(v.FreeBytes, v.TotalBytes)
		fmt.Printf("Volume: %s\n", path)
		fmt.Printf("  %s %s used\n", styles.UsageBar(used, v.TotalBytes, 30), v.UsageLabel)
		fmt.Printf("  Total: %s\n", utils.FormatBytes(v.TotalBytes))
		fmt.Printf("  Free:  %s\n", utils.FormatBytes(v.FreeBytes))
		return nil
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse [dir]",
	Short: "Browse the cache interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		root, err := a.resolveRoot(args)
		if err != nil {
			return err
		}

		return ui.RunBrowser(a.store, a.scanner, root)
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Rescan the root on a schedule",
	Long:  `Runs in the foreground and rescans the configured root on the daemon.schedule cron expression until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Daemon == nil || !a.cfg.Daemon.Enabled {
			fmt.Fprintf(os.Stderr, "Daemon not enabled in configuration\n")
			fmt.Fprintf(os.Stderr, "Add the following to your config file:\n")
			fmt.Fprintf(os.Stderr, "daemon:\n")
			fmt.Fprintf(os.Stderr, "  enabled: true\n")
			fmt.Fprintf(os.Stderr, "  schedule: \"0 */6 * * *\"\n")
			return fmt.Errorf("daemon not enabled")
		}

		if testConfig {
			fmt.Println("Configuration is valid")
			fmt.Printf("Root: %s\n", a.root)
			fmt.Printf("Schedule: %s\n", a.cfg.Daemon.Schedule)
			fmt.Printf("Skip if busy: %v\n", a.cfg.Daemon.SkipIfBusy)
			return nil
		}

		opts := []daemon.Option{
			daemon.WithLogger(a.log),
			daemon.WithMetrics(a.metrics, a.cfg.MetricsFile),
		}
		if runNow {
			opts = append(opts, daemon.WithRunNow())
		}
		d, err := daemon.New(a.cfg, a.root, a.scanner, opts...)
		if err != nil {
			return fmt.Errorf("error creating daemon: %w", err)
		}

		go func() {
			<-cmd.Context().Done()
			d.Stop()
		}()

		return d.Start()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := configPath
		if cfgPath == "" {
			var err error
			if initConfig {
				cfgPath, err = config.EnsureConfigExists()
			} else {
				cfgPath, err = config.GetConfigPath()
			}
			if err != nil {
				return err
			}
		}

		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Println("Config file does not exist. Using default configuration.")
			fmt.Println("Run 'diskindex config --init' to create one.")
		}

		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("\n%s", data)
		return nil
	},
}

// report prints l in the selected format, or saves it with --file
func report(l *reporter.Listing) error {
	format, err := reporter.ParseFormat(outputFmt)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := reporter.SaveToFile(l, outputFile, format); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", outputFile)
		return nil
	}

	rptr := reporter.New(os.Stdout, format)
	if err := rptr.Report(l); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file with DISKINDEX_* overrides")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	// Scan command flags
	scanCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no live progress or summary")
	scanCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the scan")

	// Listing flags
	for _, c := range []*cobra.Command{showCmd, searchCmd} {
		c.Flags().StringVar(&outputFmt, "output", "table", "output format (summary, table, json, yaml)")
		c.Flags().StringVar(&outputFile, "file", "", "save output to file")
	}
	searchCmd.Flags().IntVar(&limit, "limit", 50, "maximum results (0 for all)")

	daemonCmd.Flags().BoolVar(&testConfig, "test-config", false, "validate configuration and exit")
	daemonCmd.Flags().BoolVar(&runNow, "run-now", false, "rescan immediately, then follow the schedule")
	configCmd.Flags().BoolVar(&initConfig, "init", false, "create a default config file if missing")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
}
