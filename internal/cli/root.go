// Package cli implements the backoffice command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/catalog"
	"github.com/mesh-intelligence/backoffice/internal/clip"
	"github.com/mesh-intelligence/backoffice/internal/logging"
	"github.com/mesh-intelligence/backoffice/internal/paths"
	"github.com/mesh-intelligence/backoffice/internal/store"
	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to the process exit code. Store and clipboard
// failures are system errors; everything else is the caller's.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrPersistence) || errors.Is(err, grid.ErrClipboard) {
		return exitSysError
	}
	return exitUserError
}

// app holds the state of one command run.
type app struct {
	configDir string
	dataDir   string
	token     string
	jsonMode  bool

	stdin io.Reader

	settings  settings
	log       *log.Logger
	catalog   *catalog.Catalog
	clipboard grid.Clipboard
	store     *store.Store
}

// rootCmd creates the top-level "backoffice" command with global flags and
// all subcommands registered.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backoffice",
		Short: "Business operations back office",
		Long: "Backoffice manages employees, students, inventory, stakeholders and\n" +
			"documents, listing them through a searchable, sortable, paged grid.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.token, "token", "", "session token (default: $BACKOFFICE_TOKEN)")

	root.AddCommand(
		a.versionCmd(),
		a.initCmd(),
		a.listCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.copyCmd(),
		a.reorderCmd(),
		a.countCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.browseCmd(),
		a.docsCmd(),
		a.tokenCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. The store is opened
// lazily by the commands that need it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = configDir

	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	s, err := resolveSettings(v, a.dataDir)
	if err != nil {
		return err
	}
	if a.token != "" {
		s.Token = a.token
	}
	a.settings = s

	l, err := logging.New(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.log = l
	return nil
}

// close releases the store if a command opened it.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.log != nil {
			a.log.Warnf("close store: %v", err)
		}
		a.store = nil
	}
}

// Run executes the CLI with args and returns the exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{catalog: catalog.New(), clipboard: clip.System{}, stdin: stdin}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(stderr, "backoffice:", err)
	}
	return exitCode(err)
}

// Execute runs the CLI with the process arguments and exits.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
