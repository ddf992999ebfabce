package capture

import (
	"bytes"
	"testing"
)

func TestRecorder_StartWriteStop(t *testing.T) {
	r := NewRecorder()
	if err := r.Start("audio/ogg"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Recording() {
		t.Fatalf("expected recording state")
	}
	_ = r.Write([]byte{1, 2})
	_ = r.Write(nil)
	_ = r.Write([]byte{3})

	seg, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !bytes.Equal(seg.Data, []byte{1, 2, 3}) {
		t.Fatalf("data: %v", seg.Data)
	}
	if seg.MimeType != "audio/ogg" {
		t.Fatalf("mime: %q", seg.MimeType)
	}
	if r.Recording() {
		t.Fatalf("expected idle after stop")
	}

	select {
	case got := <-r.Segments():
		if !bytes.Equal(got.Data, seg.Data) {
			t.Fatalf("channel segment mismatch")
		}
	default:
		t.Fatalf("expected completion signal on channel")
	}
}

func TestRecorder_DefaultsMimeType(t *testing.T) {
	r := NewRecorder()
	_ = r.Start("")
	seg, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if seg.MimeType != "audio/webm" {
		t.Fatalf("expected audio/webm default, got %q", seg.MimeType)
	}
}

func TestRecorder_StateErrors(t *testing.T) {
	r := NewRecorder()
	if err := r.Write([]byte{1}); err != ErrNotRecording {
		t.Fatalf("expected ErrNotRecording from write, got %v", err)
	}
	if _, err := r.Stop(); err != ErrNotRecording {
		t.Fatalf("expected ErrNotRecording from stop, got %v", err)
	}
	_ = r.Start("")
	if err := r.Start(""); err != ErrAlreadyRecording {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
}

func TestRecorder_AbortDiscards(t *testing.T) {
	r := NewRecorder()
	_ = r.Start("")
	_ = r.Write([]byte{9})
	r.Abort()
	if r.Recording() {
		t.Fatalf("expected idle after abort")
	}
	select {
	case <-r.Segments():
		t.Fatalf("aborted segment must not be emitted")
	default:
	}
	// A new segment after abort starts clean.
	_ = r.Start("")
	seg, _ := r.Stop()
	if len(seg.Data) != 0 {
		t.Fatalf("expected clean segment, got %v", seg.Data)
	}
}
