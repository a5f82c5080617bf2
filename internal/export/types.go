package export

// Request is the body of an on-disk EDL export. ClipIDs selects a subset of
// the video's clips; empty means every clip in list order.
type Request struct {
	VideoID     string   `json:"video_id"`
	ClipIDs     []string `json:"clip_ids"`
	ProjectName string   `json:"project_name"`
	FrameRate   float64  `json:"frame_rate"`
	OutputDir   string   `json:"output_dir"`
	// Duration of the media in seconds, used to close open-ended clips.
	Duration float64 `json:"duration"`
}

// ResolvedClip is one EDL event: a bounded range of a media source.
type ResolvedClip struct {
	ClipID    string
	ClipName  string
	MediaPath string
	Start     float64
	End       float64
}

type Response struct {
	Status          string   `json:"status"`
	Format          string   `json:"format"`
	OutputPath      string   `json:"output_path"`
	ClipCount       int      `json:"clip_count"`
	UnresolvedClips []string `json:"unresolved_clips"`
}
