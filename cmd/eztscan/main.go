package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/eztscan"
	"github.com/jward/eztscan/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		if !a.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app holds the state shared by all commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eztscan",
		Short:         "Call and access graph for Easytrieve sources",
		Long:          "eztscan parses Easytrieve programs and macros, resolves PERFORM, CALL and file references across modules, and writes the resulting graph to a SQLite database.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(a.stderr, cfg.Verbose)
			if cfg.File != "" {
				a.logger.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
		// No Run: prints help by default.
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.FileName+" when present)")
	pf.String("db", config.DefaultDB, "database path, relative paths are taken from the repository root")
	pf.String("format", config.DefaultFormat, "output format: text|json|yaml")
	pf.BoolP("verbose", "v", false, "log debug messages to stderr")

	root.AddCommand(a.indexCmd())
	root.AddCommand(a.queryCmd())
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *app) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory of Easytrieve sources",
		Long:  "Reads every source file under path, parses and resolves them as one set of modules, and replaces their graph in the database.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runIndex,
	}
	f := cmd.Flags()
	f.Bool("force", false, "delete the database and reindex from scratch")
	f.String("encoding", config.DefaultEncoding, "IANA charset of the sources, e.g. IBM037")
	f.String("extensions", config.DefaultExtensions, "comma-separated source file extensions")
	f.Int("workers", 0, "modules processed at once (default: number of CPUs)")
	f.Bool("parallel", true, "process modules in parallel")
	f.Duration("module-timeout", config.DefaultModuleTimeout, "time limit for parsing one module, 0 for none")
	return cmd
}

func (a *app) runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(a.cfg.DB, repoRoot)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	// Handle --force: delete the DB file entirely.
	if force, _ := cmd.Flags().GetBool("force"); force {
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing database for --force: %w", err)
			}
		}
		fmt.Fprintf(a.stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := eztscan.New(dbPath,
		eztscan.WithLogger(a.logger),
		eztscan.WithEncoding(a.cfg.Encoding),
		eztscan.WithExtensions(a.cfg.ExtensionList()...),
		eztscan.WithWorkers(a.cfg.Workers),
		eztscan.WithParallel(a.cfg.Parallel),
		eztscan.WithModuleTimeout(a.cfg.ModuleTimeout),
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	rep, err := engine.IndexDirectory(cmd.Context(), targetDir)
	if rep != nil {
		fmt.Fprintf(a.stderr, "Indexed %s in %s (%d modules, %d failed, %d objects, %d edges)\n",
			targetDir,
			time.Since(start).Round(time.Millisecond),
			rep.Modules, len(rep.Failed), rep.Stats.Objects, rep.Stats.Edges,
		)
		for _, f := range rep.Failed {
			fmt.Fprintf(a.stderr, "  failed: %s: %v\n", f.Path, f.Err)
		}
		fmt.Fprintf(a.stderr, "Database: %s\n", dbPath)
	}
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath anchors a relative database path at the repository root.
func resolveDBPath(db, repoRoot string) string {
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}
