package export

// AssetType distinguishes the media kinds a scene can reference.
type AssetType string

// Asset types observed in frame snapshots.
const (
	AssetVideo AssetType = "video"
	AssetAudio AssetType = "audio"
)

// FrameSnapshot is one asset observation at one rendered frame: the asset's
// identity, source, and playback position at the moment the frame was drawn.
// The renderer produces one []FrameSnapshot batch per frame.
type FrameSnapshot struct {
	Key          string    `json:"key"`
	Src          string    `json:"src"`
	Type         AssetType `json:"type"`
	CurrentTime  float64   `json:"currentTime"`
	PlaybackRate float64   `json:"playbackRate"`
	Volume       float64   `json:"volume"`
}

// MediaAsset is the consolidated placement of one asset across the render:
// the frame span it was visible for and the slice of its source it covered.
// Exactly one MediaAsset exists per distinct key.
type MediaAsset struct {
	Key  string
	Src  string
	Type AssetType

	// StartInVideo and EndInVideo are the inclusive frame indices of the
	// first and last observation.
	StartInVideo int
	EndInVideo   int
	// Duration is the number of frames spanned (EndInVideo-StartInVideo+1).
	Duration int
	// DurationInSeconds is last observed CurrentTime minus first observed
	// CurrentTime. It can be negative when playback seeks backward across
	// frames; that ambiguity is deliberately left to the caller.
	DurationInSeconds float64

	PlaybackRate float64
	Volume       float64
	// TrimLeftInSeconds is the first observed CurrentTime: how far into the
	// source the asset was when it first appeared.
	TrimLeftInSeconds float64
}

// assetBounds accumulates the time bounds observed for one key during the
// fold.
type assetBounds struct {
	firstTime float64
	lastTime  float64
}

// ResolveTimeline folds the ordered per-frame snapshot batches into one
// MediaAsset per distinct key. frames[i] holds the snapshots for frame
// startFrame+i; for a full render startFrame is 0, for a partial render it
// is the shard's first frame. Output order is first-appearance order.
func ResolveTimeline(frames [][]FrameSnapshot, startFrame int) []*MediaAsset {
	bounds := make(map[string]*assetBounds)
	byKey := make(map[string]*MediaAsset)
	var assets []*MediaAsset

	for i, snapshots := range frames {
		frameIndex := startFrame + i
		for _, snap := range snapshots {
			if b, ok := bounds[snap.Key]; ok {
				b.lastTime = snap.CurrentTime
				byKey[snap.Key].EndInVideo = frameIndex
				continue
			}

			bounds[snap.Key] = &assetBounds{
				firstTime: snap.CurrentTime,
				lastTime:  snap.CurrentTime,
			}
			asset := &MediaAsset{
				Key:               snap.Key,
				Src:               snap.Src,
				Type:              snap.Type,
				StartInVideo:      frameIndex,
				EndInVideo:        frameIndex,
				PlaybackRate:      snap.PlaybackRate,
				Volume:            snap.Volume,
				TrimLeftInSeconds: snap.CurrentTime,
			}
			byKey[snap.Key] = asset
			assets = append(assets, asset)
		}
	}

	for _, asset := range assets {
		b := bounds[asset.Key]
		asset.DurationInSeconds = b.lastTime - b.firstTime
		asset.Duration = asset.EndInVideo - asset.StartInVideo + 1
	}

	return assets
}
