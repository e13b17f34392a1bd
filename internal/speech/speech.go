// Package speech turns treatment text into spoken audio.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel    = "tts-1"
	DefaultVoice    = "nova"
	DefaultFileName = "treatment_suggestion.mp3"

	// maxInputChars is the longest input the speech endpoint accepts.
	maxInputChars = 4096
)

// ErrEmptyText is returned when there is nothing to read aloud.
var ErrEmptyText = errors.New("no text to synthesize")

// SpeechCreator is the subset of the OpenAI audio speech service used here.
// *openai.AudioSpeechService satisfies it.
type SpeechCreator interface {
	New(ctx context.Context, body openai.AudioSpeechNewParams, opts ...option.RequestOption) (*http.Response, error)
}

// Synthesizer converts text to mp3 audio through a hosted speech model.
type Synthesizer struct {
	speech SpeechCreator
	model  string
	voice  string
}

// NewSynthesizer creates a Synthesizer. Empty model and voice select the defaults.
func NewSynthesizer(speech SpeechCreator, model, voice string) *Synthesizer {
	if model == "" {
		model = DefaultModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Synthesizer{speech: speech, model: model, voice: voice}
}

// Synthesize returns mp3 audio for text. Text beyond the endpoint limit is cut off.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	resp, err := s.speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("speech response was empty")
	}
	return audio, nil
}

// Writer persists synthesized audio under a directory.
type Writer struct {
	dir      string
	fileName string
}

// NewWriter creates a Writer. An empty dir selects the OS temp directory and an empty
// fileName selects DefaultFileName.
func NewWriter(dir, fileName string) *Writer {
	if dir == "" {
		dir = os.TempDir()
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Writer{dir: dir, fileName: fileName}
}

// Save writes audio to the configured file name and returns its path.
func (w *Writer) Save(audio []byte) (string, error) {
	return w.write(w.fileName, audio)
}

// SaveFor writes audio to a file name prefixed with id, so sessions do not overwrite each
// other's audio.
func (w *Writer) SaveFor(id string, audio []byte) (string, error) {
	if id == "" {
		return w.Save(audio)
	}
	return w.write(id+"_"+w.fileName, audio)
}

// write stores audio through a temp file and rename so readers never see a partial file.
func (w *Writer) write(name string, audio []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".audio-*")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close audio file: %w", err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move audio file: %w", err)
	}
	return path, nil
}
