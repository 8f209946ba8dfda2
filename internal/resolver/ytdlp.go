package resolver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"audiomab/internal/core"
	"audiomab/pkg/musiclink"
)

const (
	watchURLFormat     = "https://www.youtube.com/watch?v=%s"
	unknownUploader    = "Unknown"
	defaultStreamMime  = "audio/webm"
	maxStderrSnippet   = 512
	notAvailableMarker = "video unavailable"
)

type ytdlpFormat struct {
	URL    string    `json:"url"`
	ACodec string    `json:"acodec"`
	VCodec string    `json:"vcodec"`
	ABR    flexFloat `json:"abr"`
	Ext    string    `json:"ext"`
}

type ytdlpEntry struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Uploader  string        `json:"uploader"`
	Channel   string        `json:"channel"`
	Thumbnail string        `json:"thumbnail"`
	Duration  flexFloat     `json:"duration"`
	URL       string        `json:"url"`
	Formats   []ytdlpFormat `json:"formats"`
}

func (e ytdlpEntry) uploader() string {
	if name := firstNonEmpty(e.Uploader, e.Channel); name != "" {
		return musiclink.CleanChannelName(name)
	}
	return unknownUploader
}

func (e ytdlpEntry) track() core.Track {
	return core.Track{
		ID:        e.ID,
		VideoID:   e.ID,
		Title:     e.Title,
		Artist:    e.uploader(),
		Thumbnail: e.Thumbnail,
		Duration:  e.Duration.seconds(),
	}.Normalize()
}

// YtDlpBackend runs a local yt-dlp binary. It is meant for trusted local deployments only.
type YtDlpBackend struct {
	// BinaryPath is the path to the yt-dlp executable. Defaults to "yt-dlp".
	BinaryPath string
}

// NewYtDlpBackend creates a backend that runs the binary at path.
func NewYtDlpBackend(path string) *YtDlpBackend {
	return &YtDlpBackend{BinaryPath: path}
}

func (b *YtDlpBackend) Name() string {
	return "yt-dlp"
}

func (b *YtDlpBackend) bin() string {
	if b.BinaryPath == "" {
		return core.DefaultYtDlpPath
	}
	return b.BinaryPath
}

// Version runs yt-dlp --version to check that the binary is usable.
func (b *YtDlpBackend) Version(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (b *YtDlpBackend) FetchVideo(ctx context.Context, videoID string) (*VideoInfo, error) {
	entries, err := b.dumpJSON(ctx, "--no-playlist", fmt.Sprintf(watchURLFormat, videoID))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: yt-dlp returned no metadata", ErrMalformedResponse)
	}

	entry := entries[0]
	info := &VideoInfo{
		ID:        firstNonEmpty(entry.ID, videoID),
		Title:     entry.Title,
		Artist:    entry.uploader(),
		Thumbnail: entry.Thumbnail,
		Duration:  entry.Duration.seconds(),
	}

	for _, f := range entry.Formats {
		if f.ACodec == "" || f.ACodec == "none" || (f.VCodec != "" && f.VCodec != "none") {
			continue
		}
		info.Audio = append(info.Audio, AudioCandidate{
			URL:      f.URL,
			Bitrate:  float64(f.ABR),
			MimeType: "audio/" + firstNonEmpty(f.Ext, "webm"),
		})
	}

	// A top-level url is already a single audio stream when requested formats were merged.
	if len(info.Audio) == 0 && entry.URL != "" {
		info.Audio = append(info.Audio, AudioCandidate{URL: entry.URL})
	}

	return info, nil
}

func (b *YtDlpBackend) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	entries, err := b.dumpJSON(ctx, "--flat-playlist", fmt.Sprintf(playlistURLFormat, playlistID))
	if err != nil {
		return nil, err
	}

	info := &PlaylistInfo{
		ID:     playlistID,
		Title:  fmt.Sprintf("Playlist (%d videos)", len(entries)),
		Author: unknownUploader,
	}
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		info.Tracks = append(info.Tracks, entry.track())
	}
	if len(info.Tracks) > 0 {
		info.Author = info.Tracks[0].Artist
		info.Thumbnail = info.Tracks[0].Thumbnail
	}

	return info, nil
}

func (b *YtDlpBackend) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	entries, err := b.dumpJSON(ctx, "--flat-playlist", fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, err
	}

	tracks := make([]core.Track, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		tracks = append(tracks, entry.track())
		if len(tracks) >= limit {
			break
		}
	}
	return tracks, nil
}

// OpenStream pipes yt-dlp's best audio output. The stream only counts as open once
// yt-dlp has written its first byte. Closing the body stops the process.
func (b *YtDlpBackend) OpenStream(ctx context.Context, videoID string) (*AudioStream, error) {
	cmd := exec.CommandContext(ctx, b.bin(),
		"-f", "bestaudio", "-o", "-", "--no-warnings", "--quiet", fmt.Sprintf(watchURLFormat, videoID))

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, classify(ctx, err)
	}

	reader := bufio.NewReader(stdout)
	if _, err := reader.Peek(1); err != nil {
		if waitErr := cmd.Wait(); waitErr != nil {
			return nil, processError(ctx, waitErr, stderr.String())
		}
		return nil, fmt.Errorf("%w: yt-dlp produced no audio", ErrMalformedResponse)
	}

	return &AudioStream{
		Body:          &processReader{ctx: ctx, cmd: cmd, reader: reader, stderr: stderr},
		ContentType:   defaultStreamMime,
		ContentLength: -1,
		Source:        b.Name(),
	}, nil
}

func (b *YtDlpBackend) dumpJSON(ctx context.Context, args ...string) ([]ytdlpEntry, error) {
	out, err := b.run(ctx, append([]string{"--dump-json", "--no-warnings"}, args...)...)
	if err != nil {
		return nil, err
	}

	var entries []ytdlpEntry
	dec := json.NewDecoder(bytes.NewReader(out))
	for {
		var entry ytdlpEntry
		if err := dec.Decode(&entry); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %v", ErrMalformedResponse, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (b *YtDlpBackend) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.bin(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, processError(ctx, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// processError classifies a failed yt-dlp run from its stderr output.
func processError(ctx context.Context, err error, stderr string) error {
	msg := stderr
	if len(msg) > maxStderrSnippet {
		msg = msg[:maxStderrSnippet]
	}
	msg = strings.TrimSpace(msg)
	if ctx.Err() == nil && strings.Contains(strings.ToLower(msg), notAvailableMarker) {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return classify(ctx, fmt.Errorf("yt-dlp failed: %w: %s", err, msg))
}

// processReader streams a child process's stdout and reaps the process.
// A non-zero exit reached at end of output is returned from Read and Close,
// so a truncated transfer never looks complete.
type processReader struct {
	ctx    context.Context
	cmd    *exec.Cmd
	reader *bufio.Reader
	stderr *bytes.Buffer
	once   sync.Once
	err    error
}

func (p *processReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if errors.Is(err, io.EOF) {
		if waitErr := p.finish(false); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// Close stops the process if output is still pending. An exit caused by that kill is not an error.
func (p *processReader) Close() error {
	return p.finish(true)
}

func (p *processReader) finish(kill bool) error {
	p.once.Do(func() {
		if kill && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
			_ = p.cmd.Wait()
			return
		}
		if err := p.cmd.Wait(); err != nil {
			p.err = processError(p.ctx, err, p.stderr.String())
		}
	})
	return p.err
}
