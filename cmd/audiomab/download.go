package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/pkg/text"
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Import a video, playlist or Apple Music URL and store every track offline",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func runDownload(_ *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	playlist, err := importPlaylist(ctx, svcs, args[0])
	if err != nil {
		return err
	}

	stored := 0
	for _, track := range playlist.Tracks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := svcs.offline.Download(ctx, track); err != nil {
			logger.Warn("Offline download failed",
				zap.String("videoID", track.VideoID),
				zap.String("title", track.Title),
				zap.Error(err))
			continue
		}
		stored++
		fmt.Println(svcs.localizer.T("success.downloaded", formatTrack(svcs, track)))
	}

	fmt.Println(svcs.localizer.T("success.download_summary", stored, len(playlist.Tracks)))
	return nil
}

// importPlaylist resolves raw as a catalog page or a video platform link and saves the result
// in the library.
func importPlaylist(ctx context.Context, svcs *services, raw string) (*core.Playlist, error) {
	shared := text.NewParser().ParseShared(raw)
	if shared.URL() == "" {
		return nil, fmt.Errorf("%s: %q", svcs.localizer.T("error.invalid_url"), raw)
	}

	var (
		playlist core.Playlist
		source   string
	)
	if shared.Kind == text.LinkKindCatalog {
		result, err := svcs.catalog.Import(ctx, shared.URL())
		if err != nil {
			return nil, fmt.Errorf("catalog import failed: %w", err)
		}
		playlist, source = result.Playlist, result.Source
	} else {
		result, err := svcs.engine.Import(ctx, shared.URL())
		if err != nil {
			return nil, fmt.Errorf("import failed: %w", err)
		}
		playlist, source = result.Playlist, result.Source
	}

	saved, err := svcs.library.SavePlaylist(ctx, playlist)
	if err != nil {
		logger.Warn("Failed to save imported playlist", zap.String("playlistID", playlist.ID), zap.Error(err))
		saved = playlist
	}

	fmt.Println(svcs.localizer.T("success.imported", saved.Title, len(saved.Tracks), source))
	return &saved, nil
}

func formatTrack(svcs *services, track core.Track) string {
	return svcs.localizer.T("format.track", track.Artist, track.Title)
}
