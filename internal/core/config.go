package core

import (
	"time"

	"audiomab/internal/i18n"
)

const (
	// DefaultSearchTimeoutSecs bounds a single backend search attempt.
	DefaultSearchTimeoutSecs = 8
	// DefaultVideoTimeoutSecs bounds a single backend video lookup.
	DefaultVideoTimeoutSecs = 10
	// DefaultPlaylistTimeoutSecs bounds a single backend playlist expansion.
	DefaultPlaylistTimeoutSecs = 15
	// DefaultStreamTimeoutSecs bounds a relayed audio stream (20 minutes).
	DefaultStreamTimeoutSecs = 20 * 60
	// DefaultSearchLimit is the number of search results returned when none is requested.
	DefaultSearchLimit = 15
	// MaxSearchLimit caps the limit a caller may request.
	MaxSearchLimit = 50
	// DefaultResolverCacheSize is the number of playlist and search results kept in memory.
	DefaultResolverCacheSize = 256
	// DefaultResolverCacheTTLSecs is how long cached playlist and search results stay valid.
	DefaultResolverCacheTTLSecs = 3600
	// DefaultCatalogMaxSongs caps the number of searches issued for one catalog import.
	DefaultCatalogMaxSongs = 50
	// DefaultRecentLimit is the number of recently played tracks kept.
	DefaultRecentLimit = 50
	// DefaultFloodLimitPerMinute is the number of /resolve requests a client may send per minute.
	DefaultFloodLimitPerMinute = 60
	// DefaultYtDlpPath is the yt-dlp binary looked up on PATH.
	DefaultYtDlpPath = "yt-dlp"
	// DefaultPlayerCommand is the external player used by the play command.
	DefaultPlayerCommand = "mpv"
)

// DefaultInvidiousInstances are the public Invidious mirrors tried in order.
var DefaultInvidiousInstances = []string{
	"https://inv.nadeko.net",
	"https://invidious.nerdvpn.de",
	"https://yewtu.be",
}

// DefaultPipedInstances are the public Piped API mirrors tried in order.
var DefaultPipedInstances = []string{
	"https://pipedapi.kavin.rocks",
	"https://pipedapi.adminforge.de",
}

type Config struct {
	Resolver ResolverConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
	Storage  StorageConfig
	Player   PlayerConfig
}

// ResolverConfig selects and orders the resolution backends.
type ResolverConfig struct {
	// LocalEnabled turns on the local yt-dlp backend. Only for trusted local deployments.
	LocalEnabled       bool
	YtDlpPath          string
	ExternalURL        string
	InvidiousInstances []string
	PipedInstances     []string

	SearchTimeout   time.Duration
	VideoTimeout    time.Duration
	PlaylistTimeout time.Duration
	StreamTimeout   time.Duration

	SearchLimit int
	CacheSize   int
	CacheTTL    time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language            string
	FloodLimitPerMinute int
	CatalogMaxSongs     int
	RecentLimit         int
}

// StorageConfig locates persisted local state. An empty Path keeps everything in memory.
type StorageConfig struct {
	Path            string
	OfflineMaxBytes int64
}

type PlayerConfig struct {
	Command string
}

func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			LocalEnabled:       false,
			YtDlpPath:          DefaultYtDlpPath,
			InvidiousInstances: append([]string(nil), DefaultInvidiousInstances...),
			PipedInstances:     append([]string(nil), DefaultPipedInstances...),
			SearchTimeout:      DefaultSearchTimeoutSecs * time.Second,
			VideoTimeout:       DefaultVideoTimeoutSecs * time.Second,
			PlaylistTimeout:    DefaultPlaylistTimeoutSecs * time.Second,
			StreamTimeout:      DefaultStreamTimeoutSecs * time.Second,
			SearchLimit:        DefaultSearchLimit,
			CacheSize:          DefaultResolverCacheSize,
			CacheTTL:           DefaultResolverCacheTTLSecs * time.Second,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			ReadTimeout: 10 * time.Second,
			// Stream relays run for up to StreamTimeout; the handler enforces its own deadline.
			WriteTimeout: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:            i18n.DefaultLanguage,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
			CatalogMaxSongs:     DefaultCatalogMaxSongs,
			RecentLimit:         DefaultRecentLimit,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Player: PlayerConfig{
			Command: DefaultPlayerCommand,
		},
	}
}
