// Package cli implements the marginalia command-line interface for managing
// paper annotations: registering papers, creating and patching entities, and
// moving annotation snapshots between databases.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	// Database drivers selected by the configured dialect.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/inkline-labs/marginalia/internal/entitystore"
)

// exitUserErr is returned for any failed command.
const exitUserErr = 1

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "marginalia" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marginalia",
		Short: "Typed annotations for scientific papers",
		Long: "Marginalia stores typed paper annotations (symbols, citations,\n" +
			"sentences, terms, equations) as schemaless rows and reconstructs\n" +
			"typed entities on read.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .marginalia)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log repository operations to stderr")

	root.AddCommand(newInitCmd())
	root.AddCommand(newPaperCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCreateCmd())
	root.AddCommand(newPatchCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserErr)
	}
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() string {
	if flags.configDir != "" {
		return flags.configDir
	}
	if v := os.Getenv("MARGINALIA_CONFIG_DIR"); v != "" {
		return v
	}
	return ".marginalia"
}

// newLogger builds the slog logger handed to the repository. Quiet unless
// --verbose is set.
func newLogger() *slog.Logger {
	if !flags.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// openStore opens the configured database and wraps it in the repository.
// The returned closer releases the connection.
func openStore() (*entitystore.Store, func() error, error) {
	cfg, err := loadConfig(resolveConfigDir())
	if err != nil {
		return nil, nil, err
	}

	var (
		driver  string
		dialect entitystore.Dialect
	)
	switch cfg.Driver {
	case driverSQLite:
		driver = "sqlite"
		dialect = entitystore.DialectSQLite
	case driverPostgres:
		driver = "pgx"
		dialect = entitystore.DialectPostgres
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q (use %s or %s)", cfg.Driver, driverSQLite, driverPostgres)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	store, err := entitystore.New(db, dialect, newLogger())
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}
