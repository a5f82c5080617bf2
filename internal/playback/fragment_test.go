package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

func TestFragmentURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		clip clips.Clip
		want string
	}{
		{"bounded", "https://x/v.mp4", clips.Clip{Start: 0, End: clips.Seconds(10)}, "https://x/v.mp4#t=0,10"},
		{"fractional", "https://x/v.mp4", clips.Clip{Start: 1.5, End: clips.Seconds(2.25)}, "https://x/v.mp4#t=1.5,2.25"},
		{"open ended", "https://x/v.mp4", clips.FullVideoClip(), "https://x/v.mp4"},
		{"replaces fragment", "https://x/v.mp4#t=3,4", clips.Clip{Start: 5, End: clips.Seconds(6)}, "https://x/v.mp4#t=5,6"},
		{"strips fragment when open", "https://x/v.mp4#t=3,4", clips.FullVideoClip(), "https://x/v.mp4"},
		{"keeps query", "https://x/v.mp4?sig=abc", clips.Clip{Start: 0, End: clips.Seconds(1)}, "https://x/v.mp4?sig=abc#t=0,1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FragmentURL(tt.url, tt.clip))
		})
	}
}

func TestMarkers(t *testing.T) {
	list := []clips.Clip{
		clips.FullVideoClip(),
		{ID: "a", Name: "Goal", Start: 30},
		{ID: "b", Name: "Save", Start: 90},
	}

	assert.Empty(t, Markers(list, 0))
	assert.NotNil(t, Markers(list, 0))
	assert.Empty(t, Markers(nil, 120))

	got := Markers(list, 120)
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0].Left)
	assert.Equal(t, 25.0, got[1].Left)
	assert.Equal(t, 75.0, got[2].Left)
	assert.Equal(t, "Save", got[2].Name)
}
