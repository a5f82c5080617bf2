package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/logging"
	"github.com/heimdex/clipmark-agent/internal/playback"
)

const testToken = "test-token"

type fakePlayback struct {
	mu       sync.Mutex
	running  bool
	advances int
	retreats int
	status   playback.Status
	err      error
}

func (f *fakePlayback) Advance(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances++
	return f.err
}

func (f *fakePlayback) Retreat(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retreats++
	return f.err
}

func (f *fakePlayback) Status() playback.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakePlayback) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []playback.Report
}

func (f *fakeReporter) Report(r playback.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
}

type testEnv struct {
	router   http.Handler
	store    *clips.Store
	playback *fakePlayback
	media    *fakeReporter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    clips.NewStore(clips.EmptySnapshot(), logging.Discard()),
		playback: &fakePlayback{status: playback.Status{Phase: playback.PhaseIdle}},
		media:    &fakeReporter{},
	}
	env.router = NewRouter(ServerConfig{
		Version:     "test",
		Store:       env.store,
		Playback:    env.playback,
		Media:       env.media,
		MediaServer: playback.NewMediaServer("", logging.Discard()),
		Tokens:      fakeTokens{token: testToken},
		Logger:      logging.Discard(),
		StartTime:   time.Now(),
		DeviceID:    "device-1",
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) addVideo(t *testing.T, name string) VideoResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/videos", CreateVideoRequest{URL: "https://cdn.example/" + name + ".mp4", Name: name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeInto[VideoResponse](t, rr)
}

func (e *testEnv) addClip(t *testing.T, videoID, name string, start, end float64, tags ...string) ClipResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/videos/"+videoID+"/clips", ClipRequest{
		Name:  name,
		Start: clips.Seconds(start),
		End:   clips.Seconds(end),
		Tags:  tags,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeInto[ClipResponse](t, rr)
}

func TestHealthHandler_NoAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeInto[HealthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "device-1", resp.DeviceID)
}

func TestRouter_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_RejectsRemoteClients(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.168.1.20:40000"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRoutesHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/routes", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeInto[RoutesResponse](t, rr)
	assert.Equal(t, []RouteResponse{{Path: "/", View: "player"}, {Path: "/videos", View: "library"}}, resp.Routes)
}

func TestCreateVideo(t *testing.T) {
	env := newTestEnv(t)

	video := env.addVideo(t, "match")

	assert.NotEmpty(t, video.ID)
	assert.Equal(t, clips.Icons[0], video.Icon)
	assert.True(t, video.IsCurrent)
	assert.Equal(t, clips.FullVideoClipID, video.CurrentClipID)
	require.Len(t, video.Clips, 1)
	assert.True(t, video.Clips[0].IsDefault)
	assert.Nil(t, video.Clips[0].End)
	assert.Equal(t, "end", video.Clips[0].EndText)

	rr := env.do(t, http.MethodGet, "/state", nil)
	state := decodeInto[StateResponse](t, rr)
	require.NotNil(t, state.CurrentVideoID)
	assert.Equal(t, video.ID, *state.CurrentVideoID)
	assert.Contains(t, state.Videos, video.ID)
}

func TestCreateVideo_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing url", body: CreateVideoRequest{Name: "x"}},
		{name: "missing name", body: CreateVideoRequest{URL: "https://cdn.example/x.mp4"}},
		{name: "blank name", body: CreateVideoRequest{URL: "https://cdn.example/x.mp4", Name: "   "}},
		{name: "unknown field", body: map[string]string{"url": "u", "name": "n", "extra": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/videos", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	assert.Empty(t, env.store.Snapshot().Videos)
}

func TestListVideos_Ordered(t *testing.T) {
	env := newTestEnv(t)
	first := env.addVideo(t, "first")
	second := env.addVideo(t, "second")

	rr := env.do(t, http.MethodGet, "/videos", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeInto[VideosResponse](t, rr)
	require.Len(t, resp.Videos, 2)
	assert.Equal(t, first.ID, resp.Videos[0].ID)
	assert.Equal(t, second.ID, resp.Videos[1].ID)
	assert.True(t, resp.Videos[1].IsCurrent)
}

func TestSetCurrentVideo(t *testing.T) {
	env := newTestEnv(t)
	first := env.addVideo(t, "first")
	env.addVideo(t, "second")

	rr := env.do(t, http.MethodPut, "/videos/current", SetCurrentVideoRequest{VideoID: first.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, first.ID, env.store.Snapshot().CurrentVideoID)

	rr = env.do(t, http.MethodPut, "/videos/current", SetCurrentVideoRequest{VideoID: "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, first.ID, env.store.Snapshot().CurrentVideoID)
}

func TestDeleteVideo(t *testing.T) {
	env := newTestEnv(t)
	first := env.addVideo(t, "first")
	second := env.addVideo(t, "second")

	rr := env.do(t, http.MethodDelete, "/videos/"+second.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	state := decodeInto[StateResponse](t, rr)
	assert.NotContains(t, state.Videos, second.ID)
	require.NotNil(t, state.CurrentVideoID)
	assert.Equal(t, first.ID, *state.CurrentVideoID)

	rr = env.do(t, http.MethodDelete, "/videos/"+second.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/videos/"+first.ID, nil)
	state = decodeInto[StateResponse](t, rr)
	assert.Nil(t, state.CurrentVideoID)
}

func TestGetVideo_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/videos/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_FOUND")
}

func TestCreateClip(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")

	clip := env.addClip(t, video.ID, "Goal", 65, 80, "soccer", "highlight")

	assert.NotEmpty(t, clip.ID)
	assert.Equal(t, "01:05", clip.StartText)
	assert.Equal(t, "01:20", clip.EndText)
	assert.Equal(t, []string{"soccer", "highlight"}, clip.Tags)
	assert.False(t, clip.IsDefault)
	assert.False(t, clip.IsCurrent)

	v := env.store.Snapshot().Videos[video.ID]
	require.Len(t, v.Clips, 2)
	assert.Equal(t, clip.ID, v.Clips[1].ID)
}

func TestCreateClip_TagsText(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")

	rr := env.do(t, http.MethodPost, "/videos/"+video.ID+"/clips", ClipRequest{
		Name:     "Save",
		Start:    clips.Seconds(1),
		End:      clips.Seconds(2),
		TagsText: " keeper , ,defence ",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	clip := decodeInto[ClipResponse](t, rr)
	assert.Equal(t, []string{"keeper", "defence"}, clip.Tags)
}

func TestCreateClip_NormalizesTags(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")

	clip := env.addClip(t, video.ID, "Goal", 1, 2, "  soccer ", "", "   ", "soccer")

	assert.Equal(t, []string{"soccer", "soccer"}, clip.Tags)
	stored := env.store.Snapshot().Videos[video.ID].Clips[1]
	assert.Equal(t, []string{"soccer", "soccer"}, stored.Tags)
}

func TestCreateClip_Validation(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")

	tests := []struct {
		name string
		req  ClipRequest
	}{
		{name: "missing name", req: ClipRequest{Start: clips.Seconds(0), End: clips.Seconds(1)}},
		{name: "missing start", req: ClipRequest{Name: "a", End: clips.Seconds(1)}},
		{name: "missing end", req: ClipRequest{Name: "a", Start: clips.Seconds(0)}},
		{name: "negative start", req: ClipRequest{Name: "a", Start: clips.Seconds(-1), End: clips.Seconds(1)}},
		{name: "end before start", req: ClipRequest{Name: "a", Start: clips.Seconds(5), End: clips.Seconds(4)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/videos/"+video.ID+"/clips", tt.req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	assert.Len(t, env.store.Snapshot().Videos[video.ID].Clips, 1)

	rr := env.do(t, http.MethodPost, "/videos/missing/clips", ClipRequest{Name: "a", Start: clips.Seconds(0), End: clips.Seconds(1)})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListClips_Search(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	env.addClip(t, video.ID, "Goal", 60, 70, "Soccer")
	env.addClip(t, video.ID, "Interview", 100, 160, "post-match")

	rr := env.do(t, http.MethodGet, "/videos/"+video.ID+"/clips?q=soc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeInto[ClipsResponse](t, rr)
	require.Len(t, resp.Clips, 1)
	assert.Equal(t, "Goal", resp.Clips[0].Name)

	rr = env.do(t, http.MethodGet, "/videos/"+video.ID+"/clips?where=duration+%3E+30", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decodeInto[ClipsResponse](t, rr)
	require.Len(t, resp.Clips, 1)
	assert.Equal(t, "Interview", resp.Clips[0].Name)

	rr = env.do(t, http.MethodGet, "/videos/"+video.ID+"/clips", nil)
	resp = decodeInto[ClipsResponse](t, rr)
	assert.Len(t, resp.Clips, 3)
	assert.True(t, resp.Clips[0].IsCurrent)
}

func TestListClips_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")

	rr := env.do(t, http.MethodGet, "/videos/"+video.ID+"/clips?where=nosuchfield+%3E+1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_QUERY")
}

func TestEditClip(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	clip := env.addClip(t, video.ID, "Goal", 60, 70)

	rr := env.do(t, http.MethodPut, "/videos/"+video.ID+"/clips/"+clip.ID, ClipRequest{
		Name:  "Late goal",
		Start: clips.Seconds(62),
		End:   clips.Seconds(75),
		Tags:  []string{"late"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	edited := decodeInto[ClipResponse](t, rr)
	assert.Equal(t, clip.ID, edited.ID)
	assert.Equal(t, "Late goal", edited.Name)
	require.NotNil(t, edited.End)
	assert.Equal(t, 75.0, *edited.End)

	v := env.store.Snapshot().Videos[video.ID]
	assert.Equal(t, "Late goal", v.Clips[1].Name)

	rr = env.do(t, http.MethodPut, "/videos/"+video.ID+"/clips/"+clip.ID, ClipRequest{
		Name:  "Late goal",
		Start: clips.Seconds(62),
		End:   clips.Seconds(75),
		Tags:  []string{" late ", " ", ""},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"late"}, env.store.Snapshot().Videos[video.ID].Clips[1].Tags)
}

func TestEditClip_Rejected(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	body := ClipRequest{Name: "x", Start: clips.Seconds(0), End: clips.Seconds(1)}

	rr := env.do(t, http.MethodPut, "/videos/"+video.ID+"/clips/"+clips.FullVideoClipID, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/videos/"+video.ID+"/clips/missing", body)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	v := env.store.Snapshot().Videos[video.ID]
	assert.Equal(t, clips.FullVideoClipName, v.Clips[0].Name)
}

func TestDeleteClip(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	clip := env.addClip(t, video.ID, "Goal", 60, 70)

	rr := env.do(t, http.MethodPut, "/videos/"+video.ID+"/current-clip", SetCurrentClipRequest{ClipID: clip.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, "/videos/"+video.ID+"/clips/"+clip.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeInto[VideoResponse](t, rr)
	assert.Len(t, resp.Clips, 1)
	assert.Equal(t, clips.FullVideoClipID, resp.CurrentClipID)

	rr = env.do(t, http.MethodDelete, "/videos/"+video.ID+"/clips/"+clips.FullVideoClipID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetCurrentClip(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	clip := env.addClip(t, video.ID, "Goal", 60, 70)

	rr := env.do(t, http.MethodPut, "/videos/"+video.ID+"/current-clip", SetCurrentClipRequest{ClipID: clip.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeInto[VideoResponse](t, rr)
	assert.Equal(t, clip.ID, resp.CurrentClipID)

	rr = env.do(t, http.MethodPut, "/videos/"+video.ID+"/current-clip", SetCurrentClipRequest{ClipID: "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, clip.ID, env.store.Snapshot().Videos[video.ID].CurrentClipID)
}

func TestPlaybackIntents(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/playback/advance", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	env.playback.running = true
	rr = env.do(t, http.MethodPost, "/playback/advance", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodPost, "/playback/retreat", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, 1, env.playback.advances)
	assert.Equal(t, 1, env.playback.retreats)

	env.playback.err = context.DeadlineExceeded
	rr = env.do(t, http.MethodPost, "/playback/advance", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPlaybackStatus(t *testing.T) {
	env := newTestEnv(t)
	env.playback.running = true
	env.playback.status = playback.Status{Phase: playback.PhasePlaying, VideoID: "v", ClipID: "c", Markers: []playback.Marker{}}

	rr := env.do(t, http.MethodGet, "/playback", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "playing", body["phase"])
	assert.Equal(t, "c", body["clip_id"])
	assert.Equal(t, true, body["running"])
}

func TestPlaybackReport(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/playback/report", map[string]any{"src": "a.mp4#t=1,2", "position": 1.5})
	require.Equal(t, http.StatusNoContent, rr.Code)

	require.Len(t, env.media.reports, 1)
	assert.Equal(t, "a.mp4#t=1,2", env.media.reports[0].Src)
	require.NotNil(t, env.media.reports[0].Position)
	assert.Equal(t, 1.5, *env.media.reports[0].Position)
}

func TestExportHandler(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	env.addClip(t, video.ID, "Goal", 60, 70)
	dir := t.TempDir()

	rr := env.do(t, http.MethodPost, "/export", map[string]any{
		"video_id":     video.ID,
		"project_name": "My Cut",
		"output_dir":   dir,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Status          string   `json:"status"`
		OutputPath      string   `json:"output_path"`
		ClipCount       int      `json:"clip_count"`
		UnresolvedClips []string `json:"unresolved_clips"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, filepath.Join(dir, "My Cut.edl"), resp.OutputPath)
	assert.Equal(t, 1, resp.ClipCount)
	assert.Equal(t, []string{clips.FullVideoClipID}, resp.UnresolvedClips)

	data, err := os.ReadFile(resp.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TITLE: My Cut")
	assert.Contains(t, string(data), "Goal")
}

func TestExportHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	dir := t.TempDir()

	rr := env.do(t, http.MethodPost, "/export", map[string]any{"video_id": video.ID, "output_dir": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/export", map[string]any{"video_id": "missing", "output_dir": dir})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/export", map[string]any{"video_id": video.ID, "output_dir": dir})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestExportHandler_UsesReportedDuration(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	env.playback.status = playback.Status{Phase: playback.PhasePlaying, VideoID: video.ID, Duration: 120}

	rr := env.do(t, http.MethodPost, "/export", map[string]any{"video_id": video.ID, "output_dir": t.TempDir()})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"clip_count":1`)
}

func TestDownloadEDL(t *testing.T) {
	env := newTestEnv(t)
	video := env.addVideo(t, "match")
	env.addClip(t, video.ID, "Goal", 60, 70)

	rr := env.do(t, http.MethodGet, "/videos/"+video.ID+"/export.edl?fps=25&duration=300", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="match.edl"`)
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "TITLE: match"), body)
	assert.Contains(t, body, "Full Video")
	assert.Contains(t, body, "Goal")

	rr = env.do(t, http.MethodGet, "/videos/"+video.ID+"/export.edl?fps=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMediaHandler_Disabled(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/media/clip.mp4", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
