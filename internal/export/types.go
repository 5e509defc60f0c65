// Package export renders playlists as edit decision lists and M3U
// playlists.
package export

import (
	"errors"
	"fmt"
)

// DefaultClipSeconds is the clip length used for markers without an end.
const DefaultClipSeconds = 30.0

const (
	FormatEDL = "edl"
	FormatM3U = "m3u"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Clip is one playlist entry: a source stream and the marker's span in it.
type Clip struct {
	Name         string
	Source       string
	StartSeconds float64
	EndSeconds   *float64
}

// End returns the clip end, falling back to DefaultClipSeconds past the
// start.
func (c Clip) End() float64 {
	if c.EndSeconds != nil && *c.EndSeconds > c.StartSeconds {
		return *c.EndSeconds
	}
	return c.StartSeconds + DefaultClipSeconds
}

func (c Clip) Duration() float64 {
	return c.End() - c.StartSeconds
}

// Document is a rendered export ready for download.
type Document struct {
	FileName    string
	ContentType string
	Body        string
}

// Render produces the export document for format.
func Render(format, title string, clips []Clip, frameRate float64) (*Document, error) {
	base := FileBase(title)

	switch format {
	case FormatEDL, "":
		return &Document{
			FileName:    base + ".edl",
			ContentType: "text/plain; charset=utf-8",
			Body:        GenerateEDL(clips, title, frameRate),
		}, nil
	case FormatM3U:
		return &Document{
			FileName:    base + ".m3u8",
			ContentType: "audio/x-mpegurl; charset=utf-8",
			Body:        GenerateM3U(clips, title),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
