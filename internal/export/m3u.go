package export

import (
	"fmt"
	"math"
	"strings"
)

// GenerateM3U writes an extended M3U playlist. Clip spans are carried in
// VLC start/stop options so players seek to the marker.
func GenerateM3U(clips []Clip, title string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	if t := lineText(title, 120); t != "" {
		fmt.Fprintf(&b, "#PLAYLIST:%s\n", t)
	}
	for _, c := range clips {
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n", int(math.Round(c.Duration())), lineText(c.Name, 120))
		fmt.Fprintf(&b, "#EXTVLCOPT:start-time=%s\n", seconds(c.StartSeconds))
		fmt.Fprintf(&b, "#EXTVLCOPT:stop-time=%s\n", seconds(c.End()))
		b.WriteString(c.Source)
		b.WriteString("\n")
	}
	return b.String()
}

func seconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
