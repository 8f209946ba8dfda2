// Package main provides the audiomab CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"audiomab/internal/core"
	httpserver "audiomab/internal/http"
	"audiomab/internal/i18n"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "AUDIOMAB"
	version           = "1.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "audiomab",
	Short: "audiomab - resolve video links to playable audio",
	Long: `audiomab resolves video, playlist and search requests into playable audio through an
ordered list of backends (local yt-dlp, an external resolver, Invidious and Piped mirrors).
It serves the results over HTTP, keeps a local library and stores audio for offline playback.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Int("server-read-timeout-secs", int(defaults.Server.ReadTimeout.Seconds()), "HTTP read timeout in seconds")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Message language (%s)", supportedLangs))

	flags.Bool("local-resolver-enabled", defaults.Resolver.LocalEnabled, "Try the local yt-dlp binary first (trusted local deployments only)")
	flags.String("ytdlp-path", defaults.Resolver.YtDlpPath, "Path of the yt-dlp binary")
	flags.String("external-resolver-url", "", "Base URL of an external resolver API")
	flags.StringSlice("invidious-instances", defaults.Resolver.InvidiousInstances, "Invidious mirrors, tried in order")
	flags.StringSlice("piped-instances", defaults.Resolver.PipedInstances, "Piped API mirrors, tried in order")
	flags.Int("search-timeout-secs", core.DefaultSearchTimeoutSecs, "Per-backend search timeout in seconds")
	flags.Int("video-timeout-secs", core.DefaultVideoTimeoutSecs, "Per-backend video lookup timeout in seconds")
	flags.Int("playlist-timeout-secs", core.DefaultPlaylistTimeoutSecs, "Per-backend playlist timeout in seconds")
	flags.Int("stream-timeout-secs", core.DefaultStreamTimeoutSecs, "Per-backend audio relay timeout in seconds")
	flags.Int("search-limit", core.DefaultSearchLimit, "Default number of search results")
	flags.Int("resolver-cache-size", core.DefaultResolverCacheSize, "Cached playlist and search results, 0 disables the cache")
	flags.Int("resolver-cache-ttl-secs", core.DefaultResolverCacheTTLSecs, "Lifetime of cached playlist and search results in seconds")

	flags.Int("catalog-max-songs", core.DefaultCatalogMaxSongs, "Maximum songs matched per catalog import")
	flags.Int("recent-limit", core.DefaultRecentLimit, "Number of recently played tracks kept")
	flags.Int("flood-limit-per-minute", core.DefaultFloodLimitPerMinute, "Maximum /resolve requests per client per minute, 0 disables")
	flags.String("storage-path", "", "Directory for the library and offline databases (empty keeps state in memory)")
	flags.Int64("offline-max-bytes", 0, "Largest single offline download in bytes, 0 is unlimited")
	flags.String("player-command", core.DefaultPlayerCommand, "External player used by the play command")

	rootCmd.Flags().Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(downloadCmd, playCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureResolver(cfg)
	configureApp(cfg)
	configureStorage(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ReadTimeout = secondsOrDefault("server-read-timeout-secs", cfg.Server.ReadTimeout)
	cfg.Log.Level = viper.GetString("log-level")
}

func configureResolver(cfg *core.Config) {
	r := &cfg.Resolver
	r.LocalEnabled = viper.GetBool("local-resolver-enabled")
	r.YtDlpPath = viper.GetString("ytdlp-path")
	if r.YtDlpPath == "" {
		r.YtDlpPath = core.DefaultYtDlpPath
	}
	r.ExternalURL = strings.TrimSpace(viper.GetString("external-resolver-url"))
	r.InvidiousInstances = splitList(viper.GetStringSlice("invidious-instances"))
	r.PipedInstances = splitList(viper.GetStringSlice("piped-instances"))

	r.SearchTimeout = secondsOrDefault("search-timeout-secs", r.SearchTimeout)
	r.VideoTimeout = secondsOrDefault("video-timeout-secs", r.VideoTimeout)
	r.PlaylistTimeout = secondsOrDefault("playlist-timeout-secs", r.PlaylistTimeout)
	r.StreamTimeout = secondsOrDefault("stream-timeout-secs", r.StreamTimeout)

	if limit := viper.GetInt("search-limit"); limit > 0 {
		r.SearchLimit = min(limit, core.MaxSearchLimit)
	}
	r.CacheSize = max(0, viper.GetInt("resolver-cache-size"))
	r.CacheTTL = secondsOrDefault("resolver-cache-ttl-secs", r.CacheTTL)
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.FloodLimitPerMinute = max(0, viper.GetInt("flood-limit-per-minute"))

	if n := viper.GetInt("catalog-max-songs"); n > 0 {
		cfg.App.CatalogMaxSongs = n
	}
	if n := viper.GetInt("recent-limit"); n > 0 {
		cfg.App.RecentLimit = n
	}
}

func configureStorage(cfg *core.Config) {
	cfg.Storage.Path = strings.TrimSpace(viper.GetString("storage-path"))
	cfg.Storage.OfflineMaxBytes = max(0, viper.GetInt64("offline-max-bytes"))
	cfg.Player.Command = viper.GetString("player-command")
	if cfg.Player.Command == "" {
		cfg.Player.Command = core.DefaultPlayerCommand
	}
}

// secondsOrDefault reads a positive number of seconds, keeping fallback otherwise.
func secondsOrDefault(key string, fallback time.Duration) time.Duration {
	if secs := viper.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// splitList accepts both repeated flags and comma-separated environment values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting audiomab",
		zap.String("version", version),
		zap.Bool("localResolver", config.Resolver.LocalEnabled),
		zap.Bool("externalResolver", config.Resolver.ExternalURL != ""),
		zap.Int("invidiousInstances", len(config.Resolver.InvidiousInstances)),
		zap.Int("pipedInstances", len(config.Resolver.PipedInstances)),
		zap.String("language", config.App.Language))

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	if len(svcs.engine.Backends()) == 0 {
		logger.Warn("No resolver backends configured, every request will fail")
	}
	svcs.engine.Probe(ctx)

	httpServer := httpserver.NewServer(&config.Server, httpserver.Dependencies{
		Resolver:  svcs.engine,
		Catalog:   svcs.catalog,
		Library:   svcs.library,
		Offline:   svcs.offline,
		Floodgate: svcs.floodgate,
		Localizer: svcs.localizer,
		Metrics:   svcs.metrics,
	}, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	logger.Info("audiomab started successfully",
		zap.String("httpAddr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.Strings("backends", svcs.engine.Backends()))

	if err := g.Wait(); err != nil {
		logger.Error("audiomab stopped with error", zap.Error(err))
		return err
	}

	logger.Info("audiomab stopped gracefully")
	return nil
}
