package progress

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ffmpeg -progress emits key=value lines; out_time_ms carries microseconds
// too, despite its name. Only whole lines match so encoder log text merged
// into the same stream is never mistaken for a marker.
var outTimeLine = regexp.MustCompile(`^out_time_(?:us|ms)=(\d+)$`)

// ParseOutTime extracts the encoder's output position from one progress line.
func ParseOutTime(line string) (time.Duration, bool) {
	m := outTimeLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	us, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

// IsEndMarker reports the final "progress=end" line.
func IsEndMarker(line string) bool {
	return strings.TrimSpace(line) == "progress=end"
}
