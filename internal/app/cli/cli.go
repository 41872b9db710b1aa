// Package cli implements hideoutctl, a terminal mirror of one student's
// points and pet built on the same services as the HTTP server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/hideout-backend/internal/adapter/realtime"
	"github.com/heartmarshall/hideout-backend/internal/adapter/supabase"
	"github.com/heartmarshall/hideout-backend/internal/app"
	"github.com/heartmarshall/hideout-backend/internal/catalog"
	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/notify"
	"github.com/heartmarshall/hideout-backend/internal/storage"
)

type subscriber interface {
	Subscribe(ctx context.Context, studentID uuid.UUID, accessToken string) (domain.ChangeStream, error)
}

type itemLister interface {
	Items() []domain.ShopItem
}

// Env is everything the commands use.
type Env struct {
	Logger  *slog.Logger
	Creds   *Credentials
	Economy *economy.Service
	Shop    itemLister
	Stream  subscriber
	Notify  notify.Options
}

// Loader builds an Env. The returned func releases it.
type Loader func(ctx context.Context, verbose bool) (*Env, func(), error)

// NewRootCommand builds the hideoutctl command tree.
func NewRootCommand(load Loader) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "hideoutctl",
		Short:         "Terminal client for the hideout point economy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	// run loads the Env for one command invocation.
	run := func(fn func(ctx context.Context, env *Env, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, release, err := load(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer release()
			return fn(cmd.Context(), env, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(
		newLoginCommand(run),
		newLogoutCommand(run),
		newMeCommand(run),
		newFeedCommand(run),
		newBuyCommand(run),
		newEquipCommand(run),
		newShopCommand(run),
		newWatchCommand(run),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "List the environment variables the configuration reads",
			RunE: func(cmd *cobra.Command, _ []string) error {
				text, err := config.Describe()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			},
		},
	)
	return root
}

// Load builds an Env from configuration. The session is kept in JetStream
// when NATS is configured and under the user config directory otherwise.
func Load(ctx context.Context, verbose bool) (*Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := config.LogConfig{Level: "warn", Format: "text"}
	if verbose {
		logCfg.Level = "debug"
	}
	logger := app.NewLogger(logCfg)

	supa := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.RequestTimeout, logger)

	shop, err := catalog.New(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, nil, err
	}

	rt, err := realtime.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, realtime.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		ReconnectMin:      cfg.Realtime.ReconnectMin,
		ReconnectMax:      cfg.Realtime.ReconnectMax,
		LedgerTable:       cfg.Realtime.LedgerTable,
		SubmissionTable:   cfg.Realtime.SubmissionTable,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	kv, release, err := openSessionStore(ctx, cfg.NATS, logger)
	if err != nil {
		return nil, nil, err
	}

	return &Env{
		Logger:  logger,
		Creds:   NewCredentials(kv, supa),
		Economy: economy.NewService(logger, supa, shop, economy.RulesFromConfig(cfg.Economy), nil),
		Shop:    shop,
		Stream:  rt,
		Notify: notify.Options{
			DedupWindow:   cfg.Notify.DedupWindow,
			SeenCacheSize: cfg.Notify.SeenCacheSize,
			BufferSize:    cfg.Notify.BufferSize,
		},
	}, release, nil
}

func openSessionStore(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (storage.KV, func(), error) {
	if cfg.URL != "" {
		kv, _, release, err := app.OpenKV(ctx, cfg, logger)
		return kv, release, err
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, nil, fmt.Errorf("locate config dir: %w", err)
	}
	kv, err := storage.NewDir(filepath.Join(dir, "hideout"))
	if err != nil {
		return nil, nil, err
	}
	return kv, func() {}, nil
}
