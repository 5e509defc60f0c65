package export

import (
	"fmt"
	"math"
	"strings"
)

// GenerateEDL lays the clips end to end on a CMX3600 record track.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}
	dropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", lineText(title, 70))
	if dropFrame {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	record := 0.0
	for i, c := range clips {
		dur := c.Duration()
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n", i+1, "AX", "V",
			timecode(c.StartSeconds, fps), timecode(c.End(), fps),
			timecode(record, fps), timecode(record+dur, fps))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", lineText(c.Name, 120))
		fmt.Fprintf(&b, "* SOURCE FILE:  %s\n", c.Source)
		record += dur
	}
	return b.String()
}

func timecode(seconds float64, fps int) string {
	frames := int(math.Round(seconds * float64(fps)))
	ff := frames % fps
	total := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", total/3600, total/60%60, total%60, ff)
}
