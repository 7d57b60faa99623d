package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mlevitan/clinisync/internal/models"
)

// Record captures a new clinical session: patient name (validated against the
// directory), date and text. When an audio path is given instead of text, the
// transcription service produces the text and quality metadata.
func (a *App) Record(ctx context.Context) error {
	patientName, err := getSimpleText(a.reader, "Enter patient name", os.Stdout)
	if err != nil {
		return err
	}

	ok, err := a.directory.Validate(ctx, patientName)
	if err != nil {
		return err
	}
	if !ok {
		printlnFn("Unknown patient:", patientName)
		return fmt.Errorf("unknown patient %q", patientName)
	}

	sessionDate, err := getSimpleText(a.reader, "Enter session date (YYYY-MM-DD)", os.Stdout)
	if err != nil {
		return err
	}

	rec := &models.SessionRecord{
		PatientName: patientName,
		SessionDate: sessionDate,
	}

	audioPath, err := getSimpleText(a.reader, "Enter audio file path (empty to type text)", os.Stdout)
	if err != nil {
		return err
	}

	if audioPath != "" {
		transcript, err := a.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		rec.Text = transcript.Text
		rec.WordCount = transcript.WordCount
		rec.QualityMode = transcript.QualityMode
		rec.AudioFilename = audioPath
	} else {
		text, err := GetMultiline(a.reader, "Enter session notes:", os.Stdout)
		if err != nil {
			return err
		}
		rec.Text = text
	}

	enc, err := a.sessions.Record(ctx, a.userID, rec, a.masterKey)
	if err != nil {
		return err
	}

	printlnFn("Recorded session", enc.SessionID[:12], "for", sessionDate)
	return nil
}

// List prints the user's sessions, optionally filtered by patient name.
func (a *App) List(ctx context.Context) error {
	patientName, err := getSimpleText(a.reader, "Filter by patient name (empty for all)", os.Stdout)
	if err != nil {
		return err
	}

	list, err := a.sessions.List(ctx, a.userID, patientName)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		printlnFn("No sessions.")
		return nil
	}
	for _, s := range list {
		printlnFn(fmt.Sprintf("%s  %s  words=%d  status=%s", s.SessionID[:12], s.SessionDate, s.WordCount, s.SyncStatus))
	}
	return nil
}

// Show decrypts and prints one session by id prefix.
func (a *App) Show(ctx context.Context) error {
	sessionID, err := a.resolveSessionID(ctx)
	if err != nil {
		return err
	}

	rec, err := a.sessions.Get(ctx, a.userID, sessionID, a.masterKey)
	if err != nil {
		return err
	}

	printlnFn("Patient:", rec.PatientName)
	printlnFn("Date:", rec.SessionDate)
	if rec.AudioFilename != "" {
		printlnFn("Audio:", rec.AudioFilename, "quality:", rec.QualityMode)
	}
	printlnFn(rec.Text)
	return nil
}

// Delete removes one session from the local store.
func (a *App) Delete(ctx context.Context) error {
	sessionID, err := a.resolveSessionID(ctx)
	if err != nil {
		return err
	}

	if err := a.sessions.Delete(ctx, a.userID, sessionID); err != nil {
		return err
	}
	printlnFn("Deleted.")
	return nil
}

// resolveSessionID reads a session id prefix and expands it against the
// stored sessions. Ambiguous or unknown prefixes are errors.
func (a *App) resolveSessionID(ctx context.Context) (string, error) {
	prefix, err := getSimpleText(a.reader, "Enter session id (prefix is enough)", os.Stdout)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return "", fmt.Errorf("empty session id")
	}

	list, err := a.sessions.List(ctx, a.userID, "")
	if err != nil {
		return "", err
	}

	var match string
	for _, s := range list {
		if len(s.SessionID) >= len(prefix) && s.SessionID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("ambiguous session id prefix %q", prefix)
			}
			match = s.SessionID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no session matching %q", prefix)
	}
	return match, nil
}
