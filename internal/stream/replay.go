package stream

import "time"

// Pacing bounds for replayed chunks. Replay compresses the original
// timing threefold, clamped so output neither stalls nor firehoses.
const (
	minReplayDelay = 5 * time.Millisecond
	maxReplayDelay = 30 * time.Millisecond

	// tailRecheck is the wait before re-checking the log once replay has
	// caught up to an active stream.
	tailRecheck = 10 * time.Millisecond
)

// replayDelay is the pause between two replayed chunks with the given
// log timestamps (ms since stream start).
func replayDelay(cur, next int64) time.Duration {
	d := time.Duration((next-cur)/3) * time.Millisecond
	if d < minReplayDelay {
		d = minReplayDelay
	}
	if d > maxReplayDelay {
		d = maxReplayDelay
	}
	return d
}

// replay walks the chunk log from the start for one late joiner. When it
// catches up to the tail of a still-active stream it hands the subscriber
// over to live delivery; the handoff happens under the stream lock against
// the observed log length, so no chunk is lost or duplicated across the
// transition. On a terminal stream it delivers the terminal frame itself.
func (r *Registry) replay(s *stream, id string) {
	i := 0
	for {
		s.mu.Lock()
		sub, ok := s.subscribers[id]
		if !ok {
			s.mu.Unlock()
			return
		}

		if i < len(s.chunks) {
			cur := s.chunks[i]
			hasNext := i+1 < len(s.chunks)
			var delay time.Duration
			if hasNext {
				delay = replayDelay(cur.Timestamp, s.chunks[i+1].Timestamp)
			}
			conn := sub.conn
			s.mu.Unlock()

			if !conn.Open() {
				r.Unsubscribe(s.fingerprint, id)
				return
			}
			if err := conn.SendChunk(cur.Text); err != nil {
				r.Unsubscribe(s.fingerprint, id)
				return
			}
			i++
			if hasNext {
				time.Sleep(delay)
			}
			continue
		}

		// Caught up to the tail.
		if s.status.Terminal() {
			status, errMsg := s.status, s.errMsg
			full := s.full
			if full == "" {
				full = s.accumulated.String()
			}
			conn := sub.conn
			delete(s.subscribers, id)
			s.mu.Unlock()
			if status == StatusErrored {
				_ = conn.SendError(errMsg)
			} else {
				_ = conn.SendDone(full)
			}
			return
		}
		s.mu.Unlock()

		time.Sleep(tailRecheck)

		s.mu.Lock()
		sub, ok = s.subscribers[id]
		if !ok {
			s.mu.Unlock()
			return
		}
		if i == len(s.chunks) && s.status == StatusActive {
			// Still no new chunks: hand over to live delivery.
			sub.replaying = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}
