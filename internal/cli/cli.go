package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coursemix/coursesync/internal/catalog"
	"github.com/coursemix/coursesync/internal/config"
	"github.com/coursemix/coursesync/internal/logger"
	"github.com/coursemix/coursesync/internal/metrics"
	"github.com/coursemix/coursesync/internal/pipeline"
	"github.com/coursemix/coursesync/internal/scraper"
	"github.com/coursemix/coursesync/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

var (
	flagConfig      string
	flagVerbose     bool
	flagLogFormat   string
	flagDryRun      bool
	flagSubjects    []string
	flagURLs        []string
	flagFormat      string
	flagMetricsFile string
	flagSort        string
)

// NewRootCmd creates the root command. Without a subcommand it runs a sync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coursesync",
		Short: "Sync Brock University calendar courses into the Courses table",
		Long: `Fetches the undergraduate academic calendar subject pages, extracts every
course (code, title, description, prerequisites) and inserts the ones the
Courses table does not already have.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSync,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./config.yaml if present)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: console or json (overrides log.format)")
	addSyncFlags(cmd)

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newSubjectsCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagSubjects, "subject", nil, "Only sync these subjects, e.g. cosc (repeatable)")
	cmd.Flags().StringSliceVar(&flagURLs, "url", nil, "Sync these page URLs instead of the catalog (repeatable)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
}

func addSyncFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Look up courses but do not insert them")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write run metrics to this Prometheus textfile")
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch calendar pages and insert new courses (default command)",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	addSyncFlags(cmd)
	return cmd
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch calendar pages and print the extracted courses without storing them",
		Args:  cobra.NoArgs,
		RunE:  runExtract,
	}
	addSourceFlags(cmd)
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByPage), "Sort order: page or code")
	return cmd
}

func newSubjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List catalog subjects and their page URLs",
		Args:  cobra.NoArgs,
		RunE:  runSubjects,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Courses table (postgres and sqlite drivers)",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coursesync %s\n", Version)
		},
	}
}

// setup loads configuration and installs the logger
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}
	if flagLogFormat != "" {
		cfg.Log.Format = strings.ToLower(flagLogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.ParseLevel(cfg.Log.Level), logger.Format(cfg.Log.Format), cmd.ErrOrStderr())
	logger.SetDefault(log)
	return cfg, log, nil
}

func parseFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	return cat.WithOverrides(cfg.Catalog.BaseURL, cfg.Catalog.Year, cfg.Catalog.Level), nil
}

// resolveURLs returns --url values, or the catalog narrowed by --subject
func resolveURLs(cfg *config.Config) ([]string, error) {
	if len(flagURLs) > 0 {
		return flagURLs, nil
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return cat.URLs(flagSubjects)
}

func newScraper(cfg *config.Config, log *logger.Logger) *scraper.Scraper {
	return scraper.New(
		scraper.WithTimeout(cfg.Scraper.Timeout),
		scraper.WithUserAgent(cfg.Scraper.UserAgent),
		scraper.WithSelectors(cfg.Selectors()),
		scraper.WithLogger(log),
	)
}

// runSync is the main command logic
func runSync(cmd *cobra.Command, args []string) error {
	format, err := parseFormat()
	if err != nil {
		return err
	}
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() // nolint:errcheck

	for _, w := range cfg.KeyWarnings(time.Now()) {
		log.Warn(w, nil)
	}

	urls, err := resolveURLs(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	if flagDryRun {
		s = store.NewDryRun(s)
	}
	defer s.Close()

	runID := uuid.NewString()
	m := metrics.New()
	log.Info("Starting sync", logger.Fields{
		"run_id":  runID,
		"pages":   len(urls),
		"driver":  cfg.Store.Driver,
		"dry_run": flagDryRun,
	})

	p := pipeline.New(newScraper(cfg, log.With(logger.Fields{"run_id": runID})), s,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
		pipeline.WithConditionalInsert(cfg.Sync.ConditionalInsert),
		pipeline.WithRunID(runID),
		pipeline.WithDryRun(flagDryRun),
	)
	summary := p.Run(ctx, urls)

	if flagMetricsFile != "" {
		if err := m.WriteTextfile(flagMetricsFile); err != nil {
			log.Error("Error writing metrics", logger.Fields{"path": flagMetricsFile}, err)
		}
	}

	if err := WriteSummary(cmd.OutOrStdout(), summary, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := parseFormat()
	if err != nil {
		return err
	}
	order := SortOrder(strings.ToLower(flagSort))
	if order != SortByPage && order != SortByCode {
		return fmt.Errorf("invalid sort order: %s (must be 'page' or 'code')", flagSort)
	}
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() // nolint:errcheck

	urls, err := resolveURLs(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sc := newScraper(cfg, log)
	var courses []*courseRow
	for i, u := range urls {
		if ctx.Err() != nil {
			log.Warn("Extract interrupted", logger.Fields{"remaining_pages": len(urls) - i})
			break
		}
		found, err := sc.FetchCourses(ctx, u)
		if err != nil {
			log.Error("Error fetching page", logger.Fields{"url": u}, err)
			continue
		}
		for _, c := range found {
			courses = append(courses, &courseRow{Course: c, SourceURL: u})
		}
	}
	sortCourses(courses, order)

	if err := WriteCourses(cmd.OutOrStdout(), courses, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runSubjects(cmd *cobra.Command, args []string) error {
	format, err := parseFormat()
	if err != nil {
		return err
	}
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	return WriteSubjects(cmd.OutOrStdout(), cat, format)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() // nolint:errcheck

	s, err := store.Open(cmd.Context(), cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	m, ok := s.(store.Migrator)
	if !ok {
		return fmt.Errorf("store driver %s does not support migrations", cfg.Store.Driver)
	}
	if err := m.EnsureSchema(cmd.Context()); err != nil {
		return err
	}

	log.Info("Courses table ready", logger.Fields{"driver": cfg.Store.Driver, "table": cfg.Store.Table})
	return nil
}

// Run executes the command tree with args and returns the process exit code
func Run(ctx context.Context, args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return ExitError
	}
	return ExitSuccess
}

// Execute runs the CLI and exits
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
