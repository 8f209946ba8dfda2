package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"audiomab/internal/i18n"
)

const envExampleFile = ".env.example"

// envEntry documents one flag in the generated file.
type envEntry struct {
	flag    string
	example string
	comment string
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(envExampleFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# audiomab Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: AUDIOMAB_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	writeSection(&content, cmd, "Resolver Backends (tried in this order)", []envEntry{
		{flag: "local-resolver-enabled", comment: "Run yt-dlp locally first, trusted deployments only"},
		{flag: "ytdlp-path", comment: "yt-dlp binary"},
		{flag: "external-resolver-url", example: "https://resolver.example.com", comment: "External resolver API"},
		{flag: "invidious-instances", comment: "Comma-separated Invidious mirrors"},
		{flag: "piped-instances", comment: "Comma-separated Piped API mirrors"},
	})

	writeSection(&content, cmd, "Resolver Timeouts and Cache (seconds)", []envEntry{
		{flag: "search-timeout-secs", comment: "Per-backend search timeout"},
		{flag: "video-timeout-secs", comment: "Per-backend video lookup timeout"},
		{flag: "playlist-timeout-secs", comment: "Per-backend playlist timeout"},
		{flag: "stream-timeout-secs", comment: "Per-backend audio relay timeout"},
		{flag: "search-limit", comment: "Default number of search results"},
		{flag: "resolver-cache-size", comment: "Cached playlist and search results, 0 disables"},
		{flag: "resolver-cache-ttl-secs", comment: "Lifetime of cached results"},
	})

	writeSection(&content, cmd, "Application", []envEntry{
		{flag: "language", comment: "Message language: " + strings.Join(i18n.GetSupportedLanguages(), ", ")},
		{flag: "catalog-max-songs", comment: "Songs matched per Apple Music import"},
		{flag: "recent-limit", comment: "Recently played tracks kept"},
		{flag: "flood-limit-per-minute", comment: "Max /resolve requests per client per minute, 0 disables"},
	})

	writeSection(&content, cmd, "Storage and Playback", []envEntry{
		{flag: "storage-path", example: "./data", comment: "Directory for library.db and offline.db, empty keeps state in memory"},
		{flag: "offline-max-bytes", comment: "Largest single offline download, 0 is unlimited"},
		{flag: "player-command", comment: "External player for the play command"},
	})

	writeSection(&content, cmd, "HTTP Server", []envEntry{
		{flag: "server-host", example: "127.0.0.1", comment: "Server bind address"},
		{flag: "server-port", comment: "Server port"},
		{flag: "server-read-timeout-secs", comment: "Request read timeout"},
	})

	writeSection(&content, cmd, "Logging", []envEntry{
		{flag: "log-level", comment: "Log level: debug, info, warn, error"},
	})

	return content.String()
}

func writeSection(content *strings.Builder, cmd *cobra.Command, title string, entries []envEntry) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")

	flags := make([]string, 0, len(entries))
	for _, e := range entries {
		flags = append(flags, "--"+e.flag)
	}
	fmt.Fprintf(content, "# CLI: %s\n", strings.Join(flags, ", "))

	for _, e := range entries {
		def := getDefaultValueString(cmd, e.flag)
		value := e.example
		if value == "" {
			value = strings.Trim(def, "[]")
		}
		fmt.Fprintf(content, "%s=%s    # %s (default: %s)\n", flagToEnvVar(e.flag), value, e.comment, def)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	if f := cmd.Root().PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}
