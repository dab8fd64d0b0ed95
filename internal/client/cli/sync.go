package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/iudanet/daybook/internal/client/scheduler"
	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/models"
)

func (c *Cli) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [collection]",
		Short: "Synchronize now (all collections by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), args)
		},
	}
}

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in and synchronization status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) daemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run background synchronization until interrupted",
		Long: `daemon keeps the local database open, synchronizes after every edit,
when the network comes back, periodically while edits are pending and when
another device writes. With watch.dir set, collections are mirrored as JSON
files and edits to those files are picked up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.rt.Daemon.Run(ctx)
		},
	}
}

func (c *Cli) runSync(ctx context.Context, args []string) error {
	var (
		results map[string]*sync.CycleResult
		err     error
	)
	if len(args) == 1 {
		var res *sync.CycleResult
		res, err = c.rt.Sync.Reconcile(ctx, args[0], scheduler.ReasonManual)
		if res != nil {
			results = map[string]*sync.CycleResult{args[0]: res}
		}
	} else {
		results, err = c.rt.Sync.ReconcileAll(ctx, scheduler.ReasonManual)
	}

	c.printResults(results)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, sync.ErrNotAuthenticated):
		return fmt.Errorf("not logged in, run 'daybook login' first: %w", err)
	case errors.Is(err, sync.ErrNetworkUnavailable):
		return fmt.Errorf("server unreachable, edits stay pending: %w", err)
	default:
		return err
	}
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println(styleHeader.Render("Account"))

	authData, err := c.rt.Auth.Current(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		c.io.Println("Not logged in. Edits are kept on this device only.")
	case err != nil:
		return fmt.Errorf("failed to read session: %w", err)
	default:
		c.io.Printf("Username: %s\n", authData.Username)
		expires := authData.Expiry()
		if expires.After(c.now()) {
			c.io.Printf("Session:  expires %s\n", humanize.RelTime(expires, c.now(), "ago", "from now"))
		} else {
			c.io.Println("Session:  expired, it is renewed on the next sync")
		}
	}

	c.io.Println()
	c.io.Println(styleHeader.Render("Collections"))
	for _, coll := range models.Collections {
		st, err := c.rt.Sync.Status(ctx, coll)
		if err != nil {
			return fmt.Errorf("failed to read %s status: %w", coll, err)
		}

		line := fmt.Sprintf("%-8s %s", coll, statusStyle(st.Kind).Render(string(st.Kind)))
		if !st.LastSyncAt.IsZero() {
			line += styleDim.Render("  last sync " + humanize.RelTime(st.LastSyncAt, c.now(), "ago", "from now"))
		}
		c.io.Println(line)
		if st.Reason != "" {
			c.io.Printf("         %s\n", st.Reason)
		}
	}
	return nil
}
