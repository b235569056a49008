// Package cli wires configuration, logging and the session engine into
// the tabq command. The interactive surface lives in a separate frontend;
// this entry point covers startup, restore and the one-shot execute path.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tabq-dev/tabq/core/format"
	"github.com/tabq-dev/tabq/session"
	"github.com/tabq-dev/tabq/store"
)

const shutdownTimeout = 2 * time.Second

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "tabq [identifier]",
		Short: "Browse SQLite and PostgreSQL databases",
		Long: `tabq opens a database session against a SQLite file or a PostgreSQL
server and restores any previously saved tabs for it. Identifiers
starting with postgres:// or postgresql://, or containing "host=",
are treated as PostgreSQL; everything else is a SQLite path.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}
			return run(cmd, cfg, identifier)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/tabq/config.yaml)")
	cmd.Flags().StringP("execute", "e", "", "run one statement, print the first page and exit")
	cmd.Flags().Int("page-size", session.DefaultPageSize, "rows per result page")
	cmd.Flags().Duration("debounce", store.DefaultDebounce, "session snapshot write delay")
	cmd.Flags().String("state-dir", "", "directory for the session database (default user cache dir)")
	cmd.Flags().String("log-file", "", "write logs to this file (default: discard)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func run(cmd *cobra.Command, cfg *Config, identifier string) error {
	log, cleanup, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	statePath, err := cfg.StatePath()
	if err != nil {
		return fmt.Errorf("cli: resolve state path: %w", err)
	}
	st, err := store.Open(statePath)
	if err != nil {
		return err
	}
	defer st.Close()

	manager := session.NewManager(
		session.NewRegistry(log),
		st,
		store.NewWriter(st, cfg.Debounce, log),
		cfg.PageSize,
		log,
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Close(ctx); err != nil {
			log.Warn("shutdown incomplete", "error", err)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if identifier != "" {
		if err := manager.Restore(ctx, identifier); err != nil {
			return err
		}
	} else {
		snapshot, err := manager.RestoreLastActive()
		if err != nil {
			return err
		}
		if snapshot == nil {
			return fmt.Errorf("no previous session found; run: tabq <sqlite path | postgres URI>")
		}
	}

	if statement, _ := cmd.Flags().GetString("execute"); statement != "" {
		return executeOnce(ctx, cmd, manager, statement)
	}

	return printSummary(ctx, cmd, manager, identifier)
}

// executeOnce runs one statement on the active tab and prints the first
// page of its result.
func executeOnce(ctx context.Context, cmd *cobra.Command, manager *session.Manager, statement string) error {
	tab := manager.ActiveTab()
	if tab == nil {
		return fmt.Errorf("no active tab")
	}
	if err := manager.SetQueryText(tab.ID(), statement); err != nil {
		return err
	}

	call, err := manager.ExecuteActiveTab()
	if err != nil {
		return err
	}

	select {
	case <-call.Done():
	case <-ctx.Done():
		call.Cancel()
		<-call.Done()
	}
	if err := call.Err(); err != nil {
		return err
	}

	page, err := call.Result().Page(ctx, 0, manager.PageSize())
	if err != nil {
		return err
	}

	cmd.Printf("%s\n", format.Table(page))
	if page.Total > len(page.Rows) {
		cmd.Printf("showing %d of %d rows\n", len(page.Rows), page.Total)
	}
	return nil
}

// printSummary lists the session's tabs and, when a connection is open,
// its schema objects.
func printSummary(ctx context.Context, cmd *cobra.Command, manager *session.Manager, identifier string) error {
	for _, tab := range manager.Tabs() {
		marker := " "
		if active := manager.ActiveTab(); active != nil && active.ID() == tab.ID() {
			marker = "*"
		}
		state := ""
		if tab.IsDisconnected() {
			state = " (disconnected)"
		}
		cmd.Printf("%s %s%s\n", marker, tab.Title(), state)
	}

	if identifier == "" {
		cmd.Println("\nreconnect with: tabq <sqlite path | postgres URI>")
		return nil
	}

	objects, err := manager.Schema(ctx, identifier)
	if err != nil {
		return err
	}
	cmd.Println()
	for _, obj := range objects {
		cmd.Printf("%s %s (%d columns)\n", obj.Type, obj.Name, len(obj.Columns))
	}
	return nil
}
