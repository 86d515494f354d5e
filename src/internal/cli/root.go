package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ce-fello/taxonomy-buddy/src/internal/client"
	"github.com/ce-fello/taxonomy-buddy/src/internal/config"
	"github.com/ce-fello/taxonomy-buddy/src/internal/output"
	"github.com/ce-fello/taxonomy-buddy/src/internal/service"
	"github.com/ce-fello/taxonomy-buddy/src/internal/store"
)

// Storage entry points, replaced in tests.
var (
	connectDB = store.ConnectWithRetry
	migrateDB = store.Migrate
)

// app holds what every command shares. It is filled in PersistentPreRunE.
type app struct {
	ui  *output.UI
	cfg config.Config
	log *zap.Logger

	cfgFile string
	apiURL  string
	verbose bool
}

// Execute is the main entry point called from main.go.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCmd(version string) *cobra.Command {
	a := &app{ui: output.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "taxonomyctl",
		Short: "Categorize code changes against the review taxonomy",
		Long: `taxonomyctl drives the taxonomy review API: import code pairs, create
reviewers, walk through pending pairs, audit other reviewers and print progress.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (YAML)")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "API base URL (overrides api.base_url)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newImportCmd(a),
		newUserCmd(a),
		newProgressCmd(a),
		newReviewsCmd(a),
		newStatsCmd(a),
		newDiffCmd(a),
		newReviewCmd(a),
		newValidateCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	a.cfg = cfg

	a.ui.Out = cmd.OutOrStdout()
	a.ui.ErrOut = cmd.ErrOrStderr()
	a.ui.Verbose = a.verbose

	if a.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.log = logger
	}
	return nil
}

func (a *app) client() *client.Client {
	a.ui.VerboseLog("API %s", a.cfg.API.BaseURL)
	return client.New(a.cfg.API.BaseURL, nil)
}

// service opens storage directly, for operator commands the API does not expose.
func (a *app) service() (*service.Service, func(), error) {
	if a.cfg.Storage.Driver == config.DriverMemory {
		a.ui.Warning("storage.driver is memory; changes will not outlive this command")
		return service.NewService(store.NewMemoryStore(a.log), a.log), func() {}, nil
	}

	db := a.cfg.Database
	a.ui.VerboseLog("connecting to database")
	conn, err := connectDB(db.URL, db.ConnectAttempts, db.ConnectDelay, store.PoolOptions{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}, a.log)
	if err != nil {
		return nil, nil, err
	}
	if err := migrateDB(db.URL, db.MigrationsDir, a.log); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return service.NewService(store.NewRepositories(conn, a.log), a.log), func() { _ = conn.Close() }, nil
}

// login resolves --username/--password to a user id through the API. The
// password falls back to TAXONOMY_PASSWORD.
func (a *app) login(ctx context.Context, c *client.Client, username, password string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("--username required")
	}
	if password == "" {
		password = os.Getenv("TAXONOMY_PASSWORD")
	}
	userID, err := c.Login(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	a.ui.VerboseLog("logged in as %s (%s)", username, userID)
	return userID, nil
}

func addCredentialFlags(cmd *cobra.Command, username, password *string) {
	cmd.Flags().StringVarP(username, "username", "u", "", "Reviewer username")
	cmd.Flags().StringVarP(password, "password", "p", "", "Reviewer password (or TAXONOMY_PASSWORD)")
}
