package player

import (
	"math/rand"

	"github.com/DucAnhBoDoi/Music-App/model"
)

// nextIndex applies the advance policy for natural end-of-track and explicit
// next. Returns the target index and false when playback should simply end
// (tail of the queue with repeat=none).
func nextIndex(length, current int, repeat model.RepeatMode, shuffle bool, rng *rand.Rand) (int, bool) {
	if length == 0 {
		return 0, false
	}

	// repeat-one replays the same slot and ignores shuffle entirely.
	if repeat == model.RepeatOne {
		return current, true
	}

	if shuffle {
		return shuffleIndex(length, current, rng), true
	}

	if current < length-1 {
		return current + 1, true
	}
	if repeat == model.RepeatAll {
		return 0, true
	}
	return current, false
}

// prevIndex mirrors nextIndex for the previous direction. The index-0
// special case (restart instead of wrap) is handled by the engine, not here:
// this function only answers "which slot comes before".
func prevIndex(length, current int, repeat model.RepeatMode, shuffle bool, rng *rand.Rand) (int, bool) {
	if length == 0 {
		return 0, false
	}

	if repeat == model.RepeatOne {
		return current, true
	}

	if shuffle {
		return shuffleIndex(length, current, rng), true
	}

	if current > 0 {
		return current - 1, true
	}
	if repeat == model.RepeatAll {
		return length - 1, true
	}
	return current, false
}

// shuffleIndex picks a random index different from current whenever the
// queue has an alternative. Reject-and-resample terminates because length>1
// guarantees a valid pick exists.
func shuffleIndex(length, current int, rng *rand.Rand) int {
	if length <= 1 {
		return current
	}
	for {
		j := rng.Intn(length)
		if j != current {
			return j
		}
	}
}
