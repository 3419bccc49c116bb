package captions

import "github.com/flemzord/phrasecue/pkg/clip"

// Merge stitches per-chunk cue lists onto a single timeline. Chunk i was
// transcribed from audio starting at offset i×chunkSeconds, so every cue in
// it is shifted by that amount before concatenation. Chunk order is
// preserved, which keeps the merged list sorted as long as each chunk's
// cues are sorted.
func Merge(chunks [][]clip.Cue, chunkSeconds float64) []clip.Cue {
	var merged []clip.Cue
	for i, cues := range chunks {
		offset := float64(i) * chunkSeconds
		for _, c := range cues {
			c.Start += offset
			merged = append(merged, c)
		}
	}
	return merged
}
