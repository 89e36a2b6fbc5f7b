package domain

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVoice MediaKind = "voice"
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// AssetHandle references one staged binary asset. A handle is owned by the
// job that staged it and is never shared across jobs.
type AssetHandle struct {
	ID     string
	JobID  string
	Kind   MediaKind
	Path   string
	Size   int64
	Digest string
}

// Empty reports whether the handle references nothing.
func (h AssetHandle) Empty() bool {
	return h.ID == ""
}
