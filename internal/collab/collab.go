// Package collab declares the engine's external collaborator boundaries:
// transcription of audio recordings and patient identity validation. Both are
// capabilities injected by the host application; the engine never talks to a
// provider directly.
package collab

import "context"

// Transcript is the result of transcribing one audio recording.
type Transcript struct {
	Text        string
	WordCount   int
	QualityMode string
}

// TranscriptionService converts an audio file into session text. Calls may be
// slow and fallible; implementations own provider selection and credentials.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}

// PatientDirectory answers whether a patient name is known to the practice.
type PatientDirectory interface {
	Validate(ctx context.Context, name string) (bool, error)
}

// StaticDirectory is a PatientDirectory backed by a fixed name list. An empty
// directory accepts every non-empty name, which is the open-enrollment
// default for a single-practitioner setup.
type StaticDirectory struct {
	names map[string]struct{}
}

func NewStaticDirectory(names ...string) *StaticDirectory {
	d := &StaticDirectory{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		d.names[n] = struct{}{}
	}
	return d
}

func (d *StaticDirectory) Validate(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if len(d.names) == 0 {
		return true, nil
	}
	_, ok := d.names[name]
	return ok, nil
}
