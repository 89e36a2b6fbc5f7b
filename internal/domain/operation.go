package domain

import "fmt"

type OpKind string

const (
	OpVoiceToWAV   OpKind = "voice_to_wav"
	OpExtractAudio OpKind = "extract_audio"
	OpVideoToMP4   OpKind = "video_to_mp4"
	OpThumbnail    OpKind = "thumbnail"
)

const (
	maxSampleRate = 192000
	maxChannels   = 8
	maxFps        = 120
	maxSeek       = 3600
)

// Operation describes one requested media transform. Parameter fields are
// interpreted per kind; zero values select the kind's defaults.
type Operation struct {
	Kind        OpKind  `json:"kind"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	Channels    int     `json:"channels,omitempty"`
	Fps         int     `json:"fps,omitempty"`
	SeekSeconds float64 `json:"seek_seconds,omitempty"`
}

// Validate checks that the kind is known and parameters are within range.
func (o Operation) Validate() error {
	switch o.Kind {
	case OpVoiceToWAV:
		if o.SampleRate < 0 || o.SampleRate > maxSampleRate {
			return fmt.Errorf("sample rate out of range: %d", o.SampleRate)
		}
		if o.Channels < 0 || o.Channels > maxChannels {
			return fmt.Errorf("channel count out of range: %d", o.Channels)
		}
	case OpExtractAudio:
	case OpVideoToMP4:
		if o.Fps < 0 || o.Fps > maxFps {
			return fmt.Errorf("fps out of range: %d", o.Fps)
		}
	case OpThumbnail:
		if o.SeekSeconds < 0 || o.SeekSeconds > maxSeek {
			return fmt.Errorf("seek offset out of range: %g", o.SeekSeconds)
		}
	default:
		return fmt.Errorf("unknown operation kind: %s", o.Kind)
	}
	return nil
}

// Accepts reports whether the operation can consume an input of the given kind.
func (o Operation) Accepts(kind MediaKind) bool {
	switch o.Kind {
	case OpVoiceToWAV:
		return kind == MediaKindVoice || kind == MediaKindAudio
	case OpExtractAudio, OpVideoToMP4, OpThumbnail:
		return kind == MediaKindVideo
	default:
		return false
	}
}

// OutputKind returns the media kind the operation produces.
func (o Operation) OutputKind() MediaKind {
	switch o.Kind {
	case OpVoiceToWAV, OpExtractAudio:
		return MediaKindAudio
	case OpThumbnail:
		return MediaKindImage
	default:
		return MediaKindVideo
	}
}

// OutputExt returns the container extension of the produced file.
func (o Operation) OutputExt() string {
	switch o.Kind {
	case OpVoiceToWAV:
		return ".wav"
	case OpExtractAudio:
		return ".ogg"
	case OpThumbnail:
		return ".jpg"
	default:
		return ".mp4"
	}
}
