package validation

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediabot/internal/domain"
)

// Test data: magic bytes for various file types
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	webpMagic = []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x00, 0x00, 0x00, 0x57, 0x45, 0x42, 0x50}
	mp4Magic  = []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x69, 0x73, 0x6F, 0x6D}
	qtMagic   = []byte{0x00, 0x00, 0x00, 0x14, 0x66, 0x74, 0x79, 0x70, 0x71, 0x74, 0x20, 0x20}
	webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}             // EBML header
	mp3Magic  = []byte{0xFF, 0xFB, 0x90, 0x00}             // MP3 without ID3
	mp3ID3    = []byte{0x49, 0x44, 0x33, 0x04, 0x00, 0x00} // ID3 tag
	oggMagic  = []byte{0x4F, 0x67, 0x67, 0x53, 0x00, 0x02} // OggS
	wavMagic  = []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x00, 0x00, 0x00, 0x57, 0x41, 0x56, 0x45}
	flacMagic = []byte{0x66, 0x4C, 0x61, 0x43} // fLaC

	htmlMagic = []byte("<!DOCTYPE html><html><body></body></html>")
	exeMagic  = []byte{0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00} // MZ header
)

// padBytes pads the magic bytes to ensure enough data for detection
func padBytes(magic []byte, size int) []byte {
	if len(magic) >= size {
		return magic
	}
	result := make([]byte, size)
	copy(result, magic)
	return result
}

func TestDetectKind_Supported(t *testing.T) {
	tests := []struct {
		name     string
		magic    []byte
		wantMIME string
		wantKind domain.MediaKind
	}{
		{"jpeg", jpegMagic, "image/jpeg", domain.MediaKindImage},
		{"png", pngMagic, "image/png", domain.MediaKindImage},
		{"webp", webpMagic, "image/webp", domain.MediaKindImage},
		{"mp4", mp4Magic, "video/mp4", domain.MediaKindVideo},
		{"quicktime", qtMagic, "video/quicktime", domain.MediaKindVideo},
		{"webm", webmMagic, "video/webm", domain.MediaKindVideo},
		{"ogg voice note", oggMagic, "audio/ogg", domain.MediaKindVoice},
		{"mp3 frame sync", mp3Magic, "audio/mpeg", domain.MediaKindAudio},
		{"mp3 id3 tag", mp3ID3, "audio/mpeg", domain.MediaKindAudio},
		{"wav", wavMagic, "audio/wave", domain.MediaKindAudio},
		{"flac", flacMagic, "audio/flac", domain.MediaKindAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bytes.NewReader(padBytes(tt.magic, 512))
			mime, kind, err := DetectKind(reader)

			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, mime)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestDetectKind_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		magic []byte
	}{
		{"html", htmlMagic},
		{"executable", exeMagic},
		{"plain text", []byte("just some text, definitely not media")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bytes.NewReader(padBytes(tt.magic, 512))
			_, kind, err := DetectKind(reader)

			assert.ErrorIs(t, err, ErrUnsupportedMediaType)
			assert.Empty(t, kind)
		})
	}
}

func TestDetectKind_Empty(t *testing.T) {
	_, kind, err := DetectKind(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	assert.Empty(t, kind)
}

func TestDetectKind_ResetsReader(t *testing.T) {
	data := padBytes(oggMagic, 512)
	reader := bytes.NewReader(data)

	_, _, err := DetectKind(reader)
	require.NoError(t, err)

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, rest, "reader should be rewound to the start")
}

// chunkedReader returns at most chunk bytes per Read, like a network-backed
// ReadSeeker might.
type chunkedReader struct {
	*bytes.Reader
	chunk int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}
	return r.Reader.Read(p)
}

func TestDetectKind_ShortReadingReader(t *testing.T) {
	// Detection must see the full sniff window even when each Read returns
	// only a few bytes. A single-Read implementation would classify this MP4
	// from its first 3 bytes and miss the ftyp box.
	reader := &chunkedReader{Reader: bytes.NewReader(padBytes(mp4Magic, 512)), chunk: 3}
	mime, kind, err := DetectKind(reader)

	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mime)
	assert.Equal(t, domain.MediaKindVideo, kind)
}

func TestDetectKind_ShortFile(t *testing.T) {
	// Fewer bytes than the sniff buffer must still work.
	reader := bytes.NewReader(oggMagic)
	mime, kind, err := DetectKind(reader)

	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", mime)
	assert.Equal(t, domain.MediaKindVoice, kind)
}
