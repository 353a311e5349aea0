package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hilite/wingman/internal/filestore"
	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/server"
	"github.com/hilite/wingman/server/ai"
	"github.com/hilite/wingman/server/billing"
	"github.com/hilite/wingman/server/service/dialog"
	"github.com/hilite/wingman/store"
	"github.com/hilite/wingman/store/db"
)

const greetingBanner = `wingman - screenshot-based reply assistant`

var rootCmd = &cobra.Command{
	Use:   "wingmand",
	Short: "The reply assistant server",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile := &profile.Profile{
			Mode:             viper.GetString("mode"),
			Addr:             viper.GetString("addr"),
			Port:             viper.GetInt("port"),
			Data:             viper.GetString("data"),
			Driver:           viper.GetString("driver"),
			DSN:              viper.GetString("dsn"),
			Secret:           viper.GetString("secret"),
			ReplyAPIBaseURL:  viper.GetString("reply-api-base-url"),
			ReplyAPIKey:      viper.GetString("reply-api-key"),
			OpenAIAPIKey:     viper.GetString("openai-api-key"),
			OpenAIBaseURL:    viper.GetString("openai-base-url"),
			OpenAIModel:      viper.GetString("openai-model"),
			GroupReuseWindow: viper.GetDuration("group-reuse-window"),
			ReplyCycleWindow: viper.GetDuration("reply-cycle-window"),
			ReaperInterval:   viper.GetDuration("reaper-interval"),
			Version:          version,
		}
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("failed to validate profile: %w", err)
		}

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		files, err := filestore.New(filepath.Join(instanceProfile.Data, dialog.ScreenshotDir))
		if err != nil {
			return fmt.Errorf("failed to init screenshot store: %w", err)
		}

		fetcher, err := ai.NewFetcherFromProfile(instanceProfile)
		if err != nil {
			if !instanceProfile.IsDev() {
				return fmt.Errorf("failed to init reply provider: %w", err)
			}
			slog.Warn("no reply provider configured, reply fetching disabled")
			fetcher = ai.Disabled()
		}

		billingService := billing.NewJWTService(instanceProfile.Secret, instanceProfile.IsDev())
		dialogService := dialog.NewService(instanceProfile, storeInstance, files, fetcher, billingService)

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, dialogService)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		fmt.Printf("%s\nversion %s, mode %s, address %s:%d\n",
			greetingBanner, instanceProfile.Version, instanceProfile.Mode, instanceProfile.Addr, instanceProfile.Port)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		shutdownCtx := context.Background()
		s.Shutdown(shutdownCtx)
		cancel()
		return nil
	},
}

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run command", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "127.0.0.1")
	viper.SetDefault("port", 8081)
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("group-reuse-window", 10*time.Second)
	viper.SetDefault("reply-cycle-window", 10*time.Second)
	viper.SetDefault("reaper-interval", 10*time.Minute)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "127.0.0.1", "binding address of the server")
	rootCmd.PersistentFlags().Int("port", 8081, "binding port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("secret", "", "secret for entitlement receipt verification")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("wingman")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
