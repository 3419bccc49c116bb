package whisper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flemzord/phrasecue/internal/captions"
	"github.com/flemzord/phrasecue/internal/match"
	"github.com/flemzord/phrasecue/internal/media"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// minChunkBytes is the smallest WAV a chunk can be and still hold audible
// speech. Extracts below this mark the end of the source audio.
const minChunkBytes = 8 << 10

// transcriber implements media.Transcriber with ffmpeg chunking and a
// whisper.cpp-style CLI. Chunks are transcribed one at a time; once the
// phrase appears in the accumulated captions, one extra chunk is processed
// to catch a sentence spilling across the boundary, then the run stops.
type transcriber struct {
	cfg    Config
	logger *slog.Logger
}

func (t *transcriber) Transcribe(ctx context.Context, audioPath, phrase string, kind clip.QueryKind, chunkSeconds, maxChunks int) (media.TranscribeResult, error) {
	if chunkSeconds <= 0 || maxChunks <= 0 {
		return media.TranscribeResult{}, fmt.Errorf("whisper: invalid chunking %ds x %d", chunkSeconds, maxChunks)
	}

	var (
		chunkCues [][]clip.Cue
		hitIndex  = -1
	)
	for i := 0; ; i++ {
		if hitIndex >= 0 && i > hitIndex+1 {
			break
		}
		if hitIndex < 0 && i >= maxChunks {
			break
		}

		cues, last, err := t.transcribeChunk(ctx, audioPath, i, chunkSeconds)
		if err != nil {
			return media.TranscribeResult{}, err
		}
		if last && len(cues) == 0 && i == 0 {
			return media.TranscribeResult{}, fmt.Errorf("whisper: no audio in %s", audioPath)
		}
		if len(cues) > 0 {
			chunkCues = append(chunkCues, cues)
		} else {
			chunkCues = append(chunkCues, nil)
		}

		if hitIndex < 0 {
			merged := captions.Merge(chunkCues, float64(chunkSeconds))
			if match.Find(merged, phrase, kind) >= 0 {
				hitIndex = i
			}
		}
		if last {
			break
		}
	}

	merged := captions.Merge(chunkCues, float64(chunkSeconds))
	captionPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".vtt"
	if err := writeVTT(captionPath, merged); err != nil {
		return media.TranscribeResult{}, err
	}

	return media.TranscribeResult{
		CaptionPath:     captionPath,
		ChunksProcessed: len(chunkCues),
		EarlyStopped:    hitIndex >= 0,
	}, nil
}

// transcribeChunk extracts chunk i with ffmpeg and runs whisper on it.
// last reports that the source audio ends within or before this chunk.
func (t *transcriber) transcribeChunk(ctx context.Context, audioPath string, i, chunkSeconds int) (cues []clip.Cue, last bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ChunkTimeout)
	defer cancel()

	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	chunkPath := fmt.Sprintf("%s.chunk%02d.wav", base, i)
	defer func() {
		_ = os.Remove(chunkPath)
		_ = os.Remove(chunkPath + ".vtt")
	}()

	offset := i * chunkSeconds
	ffmpegArgs := []string{
		"-y",
		"-ss", strconv.Itoa(offset),
		"-t", strconv.Itoa(chunkSeconds),
		"-i", audioPath,
		"-ar", "16000",
		"-ac", "1",
		chunkPath,
	}
	//nolint:gosec // args are constructed programmatically from validated input.
	ffmpeg := exec.CommandContext(ctx, t.cfg.FFmpegPath, ffmpegArgs...)
	if out, err := ffmpeg.CombinedOutput(); err != nil {
		return nil, false, fmt.Errorf("whisper: extract chunk %d: %w\n%s", i, err, out)
	}

	info, err := os.Stat(chunkPath)
	if err != nil {
		return nil, false, fmt.Errorf("whisper: stat chunk %d: %w", i, err)
	}
	if info.Size() < minChunkBytes {
		return nil, true, nil
	}

	whisperArgs := []string{
		"-f", chunkPath,
		"-l", t.cfg.Language,
		"-ovtt",
		"-of", chunkPath, // whisper appends .vtt
		"-np",
	}
	if t.cfg.ModelPath != "" {
		whisperArgs = append([]string{"-m", t.cfg.ModelPath}, whisperArgs...)
	}
	//nolint:gosec // args are constructed programmatically from validated input.
	whisper := exec.CommandContext(ctx, t.cfg.BinaryPath, whisperArgs...)
	if out, err := whisper.CombinedOutput(); err != nil {
		return nil, false, fmt.Errorf("whisper: transcribe chunk %d: %w\n%s", i, err, out)
	}

	cues, err = captions.ParseFile(chunkPath + ".vtt")
	if err != nil {
		return nil, false, fmt.Errorf("whisper: parse chunk %d captions: %w", i, err)
	}

	// A chunk noticeably shorter than requested means the audio ran out.
	expected := int64(chunkSeconds) * 16000 * 2
	last = info.Size() < expected*95/100
	return cues, last, nil
}
