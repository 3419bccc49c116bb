package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// downloader implements media.Downloader by extracting audio with yt-dlp.
type downloader struct {
	cfg    Config
	logger *slog.Logger
}

func (d *downloader) DownloadAudio(ctx context.Context, videoID string) (string, error) {
	if err := os.MkdirAll(d.cfg.ScratchDir, 0o700); err != nil {
		return "", fmt.Errorf("ytdlp: create scratch dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.DownloadTimeout)
	defer cancel()

	outPath := filepath.Join(d.cfg.ScratchDir, videoID+".mp3")
	args := []string{
		"https://www.youtube.com/watch?v=" + videoID,
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--output", outPath,
	}
	//nolint:gosec // args are constructed programmatically from validated input.
	cmd := exec.CommandContext(ctx, d.cfg.BinaryPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		d.logger.Warn("yt-dlp download failed",
			"video_id", videoID,
			"output", string(out),
		)
		return "", fmt.Errorf("ytdlp: download %s: %w", videoID, err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("ytdlp: download %s produced no file: %w", videoID, err)
	}
	return outPath, nil
}
