package testutil

import (
	"context"
	"io"
)

// StubTranscriber returns a fixed transcript (or error) and records the
// filename of the last upload.
type StubTranscriber struct {
	Text string
	Err  error

	LastFilename string
	LastBytes    int
}

func (s *StubTranscriber) Transcribe(_ context.Context, audio io.Reader, filename string) (string, error) {
	b, _ := io.ReadAll(audio)
	s.LastFilename = filename
	s.LastBytes = len(b)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// StubSynthesizer returns fixed audio bytes (or an error) and records
// the last synthesized text.
type StubSynthesizer struct {
	Audio []byte
	Err   error

	LastText string
}

func (s *StubSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.LastText = text
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Audio, nil
}
