package collab

import "context"

// FakeTranscriber is a deterministic TranscriptionService for tests and
// offline use: it returns the configured transcript or error regardless of
// the audio path.
type FakeTranscriber struct {
	Transcript *Transcript
	Err        error
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Transcript, nil
}
