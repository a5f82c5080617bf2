package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

const (
	DefaultFrameRate   = 30.0
	DefaultProjectName = "clipmark_export"
)

// Resolve turns a video's clips into EDL events. Open-ended clips are closed
// with duration when it is known, otherwise their ids are returned as
// unresolved. A non-empty ids restricts the selection; list order is kept.
func Resolve(video clips.Video, ids []string, duration float64) ([]ResolvedClip, []string) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	mediaPath, _, _ := strings.Cut(video.URL, "#")
	resolved := make([]ResolvedClip, 0, len(video.Clips))
	unresolved := make([]string, 0)

	for _, c := range video.Clips {
		if len(wanted) > 0 && !wanted[c.ID] {
			continue
		}
		end := duration
		if c.End != nil {
			end = *c.End
		}
		if end <= c.Start {
			unresolved = append(unresolved, c.ID)
			continue
		}

		name := SanitizeName(c.Name, 160)
		if name == "" {
			name = c.ID
		}
		resolved = append(resolved, ResolvedClip{
			ClipID:    c.ID,
			ClipName:  name,
			MediaPath: mediaPath,
			Start:     c.Start,
			End:       end,
		})
	}
	return resolved, unresolved
}

// GenerateEDL renders a CMX3600-style edit decision list. Events are laid
// end to end on the record side.
func GenerateEDL(events []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	record := 0.0
	for i, ev := range events {
		length := ev.End - ev.Start
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				timecode(ev.Start, fps), timecode(ev.End, fps),
				timecode(record, fps), timecode(record+length, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// timecode formats seconds as HH:MM:SS:FF at the given integer frame rate.
func timecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, frames)
}
