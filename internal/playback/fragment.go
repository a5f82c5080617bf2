package playback

import (
	"strconv"
	"strings"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

// FragmentURL restricts url to the clip's range with a "#t=start,end" media
// fragment. Open-ended clips play the plain URL. Any fragment already on url
// is replaced.
func FragmentURL(url string, clip clips.Clip) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	if clip.End == nil {
		return url
	}
	return url + "#t=" + formatSeconds(clip.Start) + "," + formatSeconds(*clip.End)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
