// Package validation classifies inbound media by content, not by the name or
// MIME type the chat platform claims for it.
package validation

import (
	"errors"
	"io"
	"net/http"

	"mediabot/internal/domain"
)

// ErrUnsupportedMediaType is returned when the detected type is not accepted.
var ErrUnsupportedMediaType = errors.New("media type not supported")

// kindByMIME is the allowlist of accepted MIME types and the media kind each
// maps to. OGG containers are classified as voice: that is what the chat
// platform delivers voice notes as.
var kindByMIME = map[string]domain.MediaKind{
	// Images
	"image/jpeg": domain.MediaKindImage,
	"image/png":  domain.MediaKindImage,
	"image/webp": domain.MediaKindImage,
	// Videos
	"video/mp4":       domain.MediaKindVideo,
	"video/webm":      domain.MediaKindVideo,
	"video/quicktime": domain.MediaKindVideo,
	// Voice notes
	"audio/ogg":       domain.MediaKindVoice,
	"application/ogg": domain.MediaKindVoice,
	// Other audio
	"audio/mpeg":   domain.MediaKindAudio,
	"audio/wav":    domain.MediaKindAudio,
	"audio/wave":   domain.MediaKindAudio,
	"audio/x-wav":  domain.MediaKindAudio,
	"audio/flac":   domain.MediaKindAudio,
	"audio/x-flac": domain.MediaKindAudio,
}

// magicBytesBufferSize is the number of bytes read for content detection.
const magicBytesBufferSize = 512

// DetectKind reads a file's magic bytes, resets the reader to the start, and
// returns the detected MIME type and the media kind it maps to. A detected
// type outside the allowlist yields ErrUnsupportedMediaType.
func DetectKind(reader io.ReadSeeker) (mime string, kind domain.MediaKind, err error) {
	// ReadFull, not Read: a generic ReadSeeker may legally short-read, and a
	// partial prefix weakens detection.
	buf := make([]byte, magicBytesBufferSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", "", err
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}

	if n == 0 {
		return "application/octet-stream", "", ErrUnsupportedMediaType
	}
	buf = buf[:n]

	mime = detectCustomMagicBytes(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}

	kind, ok := kindByMIME[mime]
	if !ok {
		return mime, "", ErrUnsupportedMediaType
	}
	return mime, kind, nil
}

// detectCustomMagicBytes handles formats http.DetectContentType does not
// recognize reliably.
func detectCustomMagicBytes(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// WebM/Matroska: EBML header (0x1A 0x45 0xDF 0xA3)
	if buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3 {
		return "video/webm"
	}

	// OGG: "OggS" capture pattern
	if buf[0] == 'O' && buf[1] == 'g' && buf[2] == 'g' && buf[3] == 'S' {
		return "audio/ogg"
	}

	// FLAC: starts with "fLaC"
	if buf[0] == 'f' && buf[1] == 'L' && buf[2] == 'a' && buf[3] == 'C' {
		return "audio/flac"
	}

	// MP3 frame sync without an ID3 tag
	if buf[0] == 0xFF {
		switch buf[1] & 0xFE {
		case 0xFA, 0xF2: // MPEG1/2 Layer 3
			return "audio/mpeg"
		}
	}

	// ID3 tag (common for MP3)
	if buf[0] == 'I' && buf[1] == 'D' && buf[2] == '3' {
		return "audio/mpeg"
	}

	// WebP: RIFF....WEBP
	if len(buf) >= 12 {
		if buf[0] == 'R' && buf[1] == 'I' && buf[2] == 'F' && buf[3] == 'F' &&
			buf[8] == 'W' && buf[9] == 'E' && buf[10] == 'B' && buf[11] == 'P' {
			return "image/webp"
		}
	}

	// MP4/QuickTime: ftyp box at offset 4
	if len(buf) >= 12 {
		if buf[4] == 'f' && buf[5] == 't' && buf[6] == 'y' && buf[7] == 'p' {
			if string(buf[8:12]) == "qt  " {
				return "video/quicktime"
			}
			return "video/mp4"
		}
	}

	return ""
}
