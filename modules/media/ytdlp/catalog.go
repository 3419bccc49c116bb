package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	"github.com/flemzord/phrasecue/internal/media"
)

// catalog implements media.Catalog by shelling out to yt-dlp for search
// and querying the oEmbed endpoint for embeddability.
type catalog struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func (c *catalog) Search(ctx context.Context, query string, k int) ([]media.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	args := []string{
		fmt.Sprintf("ytsearch%d:%s", k, query),
		"--flat-playlist",
		"--no-download",
		"--print", "%(id)s\t%(title)s",
	}
	//nolint:gosec // args are constructed programmatically from validated input.
	cmd := exec.CommandContext(ctx, c.cfg.BinaryPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ytdlp: search %q: %w", query, err)
	}

	return parseSearchOutput(string(out)), nil
}

// parseSearchOutput reads "id\ttitle" lines printed by yt-dlp.
func parseSearchOutput(out string) []media.Candidate {
	var candidates []media.Candidate
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, title, _ := strings.Cut(line, "\t")
		if id == "" {
			continue
		}
		candidates = append(candidates, media.Candidate{
			VideoID: id,
			Title:   title,
			URL:     "https://www.youtube.com/watch?v=" + id,
		})
	}
	return candidates
}

func (c *catalog) IsEmbeddable(ctx context.Context, videoID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OEmbedTimeout)
	defer cancel()

	endpoint := c.cfg.OEmbedURL + "?format=json&url=" +
		url.QueryEscape("https://www.youtube.com/watch?v="+videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("ytdlp: build oembed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ytdlp: oembed check %s: %w", videoID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The endpoint answers 401/403 for videos with embedding disabled.
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("ytdlp: oembed check %s: unexpected status %d", videoID, resp.StatusCode)
	}
}
