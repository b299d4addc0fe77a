package sourcemap

import (
	"fmt"
	"strings"
)

type MediaType uint

const (
	Audio MediaType = iota
	Video
)

// mediaTypes holds every recognized kind in rendering order: audio contents
// are always built before video contents.
var mediaTypes = [...]MediaType{Audio, Video}

func (t MediaType) String() string {
	return [...]string{
		"audio",
		"video",
	}[t]
}

// ParseMediaType matches s against the recognized media kinds, ignoring case.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(s) {
	case "audio":
		return Audio, nil
	case "video":
		return Video, nil
	}
	return 0, fmt.Errorf("%w, media = %q", UnknownMediaTypeError, s)
}
