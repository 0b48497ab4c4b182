// Command duetctl inspects and edits the on-device duet state from a shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
	"github.com/duetapp/duet/internal/config"
	"github.com/duetapp/duet/internal/logger"
)

var (
	dataDir string
	backend string
	apiURL  string
	debug   bool

	cliLog = zerolog.Nop()
)

const commandTimeout = 30 * time.Second

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cliLog.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "duetctl",
		Short:         "Inspect and edit local duet state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cliLog = logger.Console(cmd.ErrOrStderr(), debug)
			cliLog.Debug().Msg("debug logging enabled")
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "State directory (default $DUET_DATA_DIR or ~/.duet)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Storage engine: bbolt or sqlite (default $DUET_KV_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (default $DUET_API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWorkspaceCmd())
	rootCmd.AddCommand(newTodoCmd())
	rootCmd.AddCommand(newEventCmd())

	return rootCmd
}

// withApp opens the state, runs fn and waits for its writes before closing.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *duet.App) error) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if backend != "" {
		cfg.KVBackend = backend
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	cfg.Debug = cfg.Debug || debug

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	start := time.Now()
	a, err := duet.New(ctx, duet.WithConfig(*cfg), duet.WithLogger(cliLog))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() { _ = a.Close() }()
	cliLog.Debug().Dur("elapsed", time.Since(start)).Str("backend", cfg.KVBackend).Msg("state opened")

	if err := fn(ctx, a); err != nil {
		return err
	}
	return a.AwaitPersisted(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// currentWorkspace returns flagValue or, when empty, the selected workspace.
func currentWorkspace(a *duet.App, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if id := a.Workspaces.Get().CurrentWorkspaceID; id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no workspace selected: pass --workspace or run `duetctl workspace use`")
}

const dateLayout = "2006-01-02"

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", flag, value)
	}
	return t, nil
}
