package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/server/app"
)

var (
	rootCmd = &cobra.Command{
		Use:   "shopfloor",
		Short: "Inventory sync and media tooling for the workshop's materials, tools and products.",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if viper.GetBool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "supabase")
	viper.SetDefault("media-backend", "supabase")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the session, can be "prod" or "dev" or "demo"`)
	flags.String("driver", "supabase", "entity store driver: supabase, postgres or sqlite")
	flags.String("dsn", "", "database source name (postgres, sqlite)")
	flags.String("data", "", "data directory for the sqlite driver")
	flags.String("supabase-url", "", "Supabase project URL")
	flags.String("supabase-key", "", "Supabase API key")
	flags.String("media-backend", "supabase", "media store: supabase or s3")
	flags.String("s3-endpoint", "", "S3-compatible endpoint host:port")
	flags.String("redis-addr", "", "Redis address for the shared image dedup cache")
	flags.Bool("verbose", false, "log at debug level")

	for _, name := range []string{"mode", "driver", "dsn", "data", "supabase-url", "supabase-key", "media-backend", "s3-endpoint", "redis-addr", "verbose"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("shopfloor")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(checkCmd, searchCmd, statsCmd, addMaterialCmd, uploadCmd, qrCmd, extractCmd)
}

// loadProfile builds the profile from flags, then SHOPFLOOR_* variables for
// everything without a flag.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:         viper.GetString("mode"),
		Driver:       viper.GetString("driver"),
		DSN:          viper.GetString("dsn"),
		Data:         viper.GetString("data"),
		SupabaseURL:  viper.GetString("supabase-url"),
		SupabaseKey:  viper.GetString("supabase-key"),
		MediaBackend: viper.GetString("media-backend"),
		S3Endpoint:   viper.GetString("s3-endpoint"),
		RedisAddr:    viper.GetString("redis-addr"),
		Version:      version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// withApp runs fn with a wired session, started when start is set.
func withApp(cmd *cobra.Command, start bool, fn func(ctx context.Context, a *app.App) error) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, p)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if start {
		if err := a.Start(ctx); err != nil {
			slog.Warn("inventory partially loaded", "error", err)
		}
	}
	return fn(ctx, a)
}

const version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
