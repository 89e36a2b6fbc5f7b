package ffmpeg

import "bytes"

// boundedBuffer keeps at most limit bytes of process output and silently
// discards the rest, so a chatty or adversarial tool cannot grow memory.
type boundedBuffer struct {
	limit int
	buf   bytes.Buffer
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf.Write(p[:room])
	}
	// Report the full length so the writer never blocks the process.
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
