package clips

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	FullVideoClipID   = "full-video"
	FullVideoClipName = "Full Video"

	DefaultIcon = "/icons/icon-default.jpg"
)

// Icons is the selectable thumbnail set; new videos default to the first one.
var Icons = []string{
	"/icons/icon-1.jpg",
	"/icons/icon-2.jpg",
	"/icons/icon-3.jpg",
	"/icons/icon-4.jpg",
	"/icons/icon-5.jpg",
}

// Clip is a named, taggable time range of a video. End == nil means
// "to the end of the media".
type Clip struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Start     float64  `json:"start"`
	End       *float64 `json:"end"`
	Tags      []string `json:"tags"`
	IsDefault bool     `json:"isDefault"`
}

type Video struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Clips         []Clip `json:"clips"`
	CurrentClipID string `json:"currentClipId"`
}

// Snapshot is an immutable copy of the store. CurrentVideoID is "" when no
// video is selected.
type Snapshot struct {
	Videos         map[string]Video
	CurrentVideoID string
}

// FullVideoClip returns the reserved clip spanning the whole video.
func FullVideoClip() Clip {
	return Clip{
		ID:        FullVideoClipID,
		Name:      FullVideoClipName,
		Start:     0,
		End:       nil,
		Tags:      []string{},
		IsDefault: true,
	}
}

// Seconds is a convenience for building clip ends.
func Seconds(v float64) *float64 {
	return &v
}

// HasEnd reports whether the clip is bounded.
func (c Clip) HasEnd() bool {
	return c.End != nil
}

// Duration returns end-start, or 0 for open-ended clips.
func (c Clip) Duration() float64 {
	if c.End == nil {
		return 0
	}
	return *c.End - c.Start
}

// Equal compares clips by value.
func (c Clip) Equal(o Clip) bool {
	if c.ID != o.ID || c.Name != o.Name || c.Start != o.Start || c.IsDefault != o.IsDefault {
		return false
	}
	if (c.End == nil) != (o.End == nil) {
		return false
	}
	if c.End != nil && *c.End != *o.End {
		return false
	}
	return slices.Equal(c.Tags, o.Tags)
}

func (c Clip) clone() Clip {
	out := c
	if c.End != nil {
		out.End = Seconds(*c.End)
	}
	out.Tags = append([]string{}, c.Tags...)
	return out
}

// IconOrDefault returns the thumbnail path, falling back to DefaultIcon.
func (v Video) IconOrDefault() string {
	if v.Icon == "" {
		return DefaultIcon
	}
	return v.Icon
}

// ClipIndex returns the position of the clip with the given id, or -1.
func (v Video) ClipIndex(id string) int {
	for i, c := range v.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CurrentClip resolves CurrentClipID against the clip list.
func (v Video) CurrentClip() (Clip, bool) {
	i := v.ClipIndex(v.CurrentClipID)
	if i < 0 {
		return Clip{}, false
	}
	return v.Clips[i], true
}

func (v Video) Equal(o Video) bool {
	if v.ID != o.ID || v.URL != o.URL || v.Name != o.Name || v.Icon != o.Icon || v.CurrentClipID != o.CurrentClipID {
		return false
	}
	return slices.EqualFunc(v.Clips, o.Clips, Clip.Equal)
}

func (v Video) clone() Video {
	out := v
	out.Clips = make([]Clip, len(v.Clips))
	for i, c := range v.Clips {
		out.Clips[i] = c.clone()
	}
	return out
}

// EmptySnapshot is the state used when nothing has been persisted.
func EmptySnapshot() Snapshot {
	return Snapshot{Videos: map[string]Video{}}
}

// CurrentVideo returns the selected video, if any.
func (s Snapshot) CurrentVideo() (Video, bool) {
	if s.CurrentVideoID == "" {
		return Video{}, false
	}
	v, ok := s.Videos[s.CurrentVideoID]
	return v, ok
}

// VideoIDs returns the keys of Videos in ascending order.
func (s Snapshot) VideoIDs() []string {
	ids := make([]string, 0, len(s.Videos))
	for id := range s.Videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Snapshot) Equal(o Snapshot) bool {
	if s.CurrentVideoID != o.CurrentVideoID || len(s.Videos) != len(o.Videos) {
		return false
	}
	for id, v := range s.Videos {
		ov, ok := o.Videos[id]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Videos:         make(map[string]Video, len(s.Videos)),
		CurrentVideoID: s.CurrentVideoID,
	}
	for id, v := range s.Videos {
		out.Videos[id] = v.clone()
	}
	return out
}

var (
	videoIDMu   sync.Mutex
	lastVideoID int64
)

// NewVideoID returns the current wall-clock time in milliseconds as a
// decimal string, bumped so that ids handed out by this process are
// strictly increasing.
func NewVideoID() string {
	videoIDMu.Lock()
	defer videoIDMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastVideoID {
		id = lastVideoID + 1
	}
	lastVideoID = id
	return strconv.FormatInt(id, 10)
}

func NewClipID() string {
	return uuid.NewString()
}

func (c Clip) String() string {
	end := "end"
	if c.End != nil {
		end = strconv.FormatFloat(*c.End, 'f', -1, 64)
	}
	return fmt.Sprintf("%s[%s %g-%s]", c.Name, c.ID, c.Start, end)
}
