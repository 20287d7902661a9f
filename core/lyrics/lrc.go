package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is one timestamped lyric entry.
type Line struct {
	TimeMs int64  `json:"timeMs"`
	Text   string `json:"text"`
}

// timeTag matches one leading [mm:ss] / [mm:ss.fff] tag. The fraction is
// 1 to 3 digits, right-padded with zeros to milliseconds.
var timeTag = regexp.MustCompile(`^\[(\d+):(\d{1,2})(?:\.(\d{1,3}))?\]`)

// ParseLRC parses timestamp-tagged lyric text into entries sorted by time.
// A physical line may carry several tags (repeated-line lyrics) and yields
// one entry per tag; a line whose text strips to empty is dropped.
func ParseLRC(text string) []Line {
	var entries []Line

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")

		var times []int64
		rest := line
		for {
			m := timeTag.FindStringSubmatch(rest)
			if m == nil {
				break
			}
			minutes, _ := strconv.ParseInt(m[1], 10, 64)
			seconds, _ := strconv.ParseInt(m[2], 10, 64)
			var millis int64
			if m[3] != "" {
				frac := m[3]
				for len(frac) < 3 {
					frac += "0"
				}
				millis, _ = strconv.ParseInt(frac, 10, 64)
			}
			times = append(times, minutes*60_000+seconds*1000+millis)
			rest = rest[len(m[0]):]
		}

		if len(times) == 0 {
			continue
		}
		content := strings.TrimSpace(rest)
		if content == "" {
			continue
		}
		for _, t := range times {
			entries = append(entries, Line{TimeMs: t, Text: content})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TimeMs < entries[j].TimeMs
	})
	return entries
}

// ResolveIndex returns the index of the last entry whose time is at or
// before positionMs, or -1 when the position precedes the first entry.
// Entries must be sorted ascending (ParseLRC output is).
func ResolveIndex(entries []Line, positionMs int64) int {
	// First entry strictly after positionMs; the active line is the one
	// before it.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].TimeMs > positionMs
	})
	return i - 1
}
