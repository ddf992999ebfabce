package capture

import (
	"errors"
	"sync"
)

// Segment is one completed recording: an opaque, already-encoded audio payload
// tagged with its encoding. Nothing in this layer inspects the bytes.
type Segment struct {
	Data     []byte
	MimeType string
}

var (
	ErrAlreadyRecording = errors.New("capture: segment already in progress")
	ErrNotRecording     = errors.New("capture: no segment in progress")
)

// Recorder accumulates chunks of one recording segment between Start and Stop.
// Completed segments are delivered on the channel returned by Segments, one
// per Start/Stop cycle.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	mimeType  string
	chunks    [][]byte
	segments  chan Segment
}

// NewRecorder constructs a Recorder. The segment channel is buffered so a
// consumer that is momentarily busy does not block Stop.
func NewRecorder() *Recorder {
	return &Recorder{segments: make(chan Segment, 4)}
}

// Segments returns the completion signal channel.
func (r *Recorder) Segments() <-chan Segment { return r.segments }

// Recording reports whether a segment is currently open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start opens a new segment. mimeType may be empty; it defaults to audio/webm,
// the format browsers produce from MediaRecorder.
func (r *Recorder) Start(mimeType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	r.recording = true
	r.mimeType = mimeType
	r.chunks = nil
	return nil
}

// Write appends one chunk to the open segment.
func (r *Recorder) Write(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	if len(chunk) > 0 {
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		r.chunks = append(r.chunks, buf)
	}
	return nil
}

// Stop closes the segment and emits it. An empty segment is still emitted;
// rejecting empty audio is the analysis boundary's job, so the caller gets a
// consistent completion signal either way.
func (r *Recorder) Stop() (Segment, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Segment{}, ErrNotRecording
	}
	var size int
	for _, c := range r.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	seg := Segment{Data: data, MimeType: r.mimeType}
	r.recording = false
	r.chunks = nil
	r.mu.Unlock()

	select {
	case r.segments <- seg:
	default:
		// Consumer fell behind; the segment is still returned to the caller.
	}
	return seg, nil
}

// Abort discards the open segment without emitting it.
func (r *Recorder) Abort() {
	r.mu.Lock()
	r.recording = false
	r.chunks = nil
	r.mu.Unlock()
}
