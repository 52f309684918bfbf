package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ayatoki/kiroku/analyzer"
	"github.com/ayatoki/kiroku/internal/profile"
	"github.com/ayatoki/kiroku/plugin/ai"
	"github.com/ayatoki/kiroku/server"
	"github.com/ayatoki/kiroku/store"
	"github.com/ayatoki/kiroku/store/db"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "kiroku",
	Short: "Time and activity analysis service for free-text activity notes",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := buildProfile()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return errors.Wrap(err, "failed to create db driver")
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Ping(ctx); err != nil {
			slog.Warn("history database unreachable, analyses run without context",
				slog.String("dsn", instanceProfile.DSN),
				slog.String("error", err.Error()))
		}

		s, err := server.NewServer(instanceProfile, storeInstance, newEngine(instanceProfile))
		if err != nil {
			return errors.Wrap(err, "failed to create server")
		}

		slog.Info("kiroku started",
			slog.String("version", version),
			slog.String("mode", instanceProfile.Mode),
			slog.Int("port", instanceProfile.Port))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := s.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			s.Shutdown(context.Background())
			return nil
		})
		return g.Wait()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <content>",
	Short: "Analyze one activity note and print the JSON result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceProfile, err := buildProfile()
		if err != nil {
			return err
		}

		request := &analyzer.AnalyzeRequest{
			Input:    args[0],
			Timezone: instanceProfile.Timezone,
		}
		result, err := newEngine(instanceProfile).Analyze(cmd.Context(), request)
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode result")
		}
		fmt.Println(string(encoded))
		return nil
	},
}

// newEngine builds the analysis engine, attaching the LLM classifier only
// when the profile enables it. Engine construction never fails: a broken
// classifier config degrades to offline analysis.
func newEngine(instanceProfile *profile.Profile) *analyzer.Engine {
	opts := []analyzer.Option{}
	if instanceProfile.IsAIEnabled() {
		provider, err := ai.NewProvider(ai.NewLLMConfigFromProfile(instanceProfile))
		if err != nil {
			slog.Warn("classifier disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, analyzer.WithClassifier(ai.NewTimeClassifier(provider)))
		}
	}
	return analyzer.NewEngine(opts...)
}

func buildProfile() (*profile.Profile, error) {
	// AI credentials and tuning come from KIROKU_* environment variables
	// only; flags cover the deployment knobs and override the env baseline.
	instanceProfile := &profile.Profile{}
	instanceProfile.FromEnv()

	instanceProfile.Mode = viper.GetString("mode")
	instanceProfile.Addr = viper.GetString("addr")
	instanceProfile.Port = viper.GetInt("port")
	instanceProfile.Data = viper.GetString("data")
	instanceProfile.Driver = viper.GetString("driver")
	instanceProfile.DSN = viper.GetString("dsn")
	instanceProfile.Version = version
	instanceProfile.Timezone = viper.GetString("timezone")
	instanceProfile.HistoryWindow = viper.GetInt("history-window")

	if err := instanceProfile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return instanceProfile, nil
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8230)
	viper.SetDefault("data", "")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("dsn", "")
	viper.SetDefault("timezone", "Asia/Tokyo")
	viper.SetDefault("history-window", 5)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "history database driver")
	rootCmd.PersistentFlags().String("dsn", "", "path of the activity-log database")
	rootCmd.PersistentFlags().String("timezone", "Asia/Tokyo", "default IANA timezone for analyses")
	rootCmd.PersistentFlags().Int("history-window", 5, "recent log entries supplied to each analysis")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("kiroku")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
