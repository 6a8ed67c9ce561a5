package transcriber

import (
	"context"
	"fmt"
	"strings"
)

// Variant selects the engine implementation.
type Variant string

const (
	WhisperCpp Variant = "whispercpp"
	OpenAI     Variant = "openai"
	Groq       Variant = "groq"
)

var Variants = []Variant{WhisperCpp, OpenAI, Groq}

// Size is the user-facing model size.
type Size string

const (
	Base  Size = "base"
	Small Size = "small"
	Large Size = "large"
)

var Sizes = []Size{Base, Small, Large}

type Model struct {
	Variant Variant
	Size    Size
}

func (m Model) String() string {
	return string(m.Variant) + "/" + string(m.Size)
}

func (m Model) IsZero() bool {
	return m.Size == ""
}

func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q (want whispercpp, openai or groq)", s)
}

func ParseSize(s string) (Size, error) {
	for _, sz := range Sizes {
		if strings.EqualFold(s, string(sz)) {
			return sz, nil
		}
	}
	return "", fmt.Errorf("unknown model %q (want base, small or large)", s)
}

type Options struct {
	// Language is an ISO-639-1 code; empty means auto-detect.
	Language string
}

type Result struct {
	Text     string
	Language string // detected or pinned language, empty when the engine does not report it
}

// Engine decodes 16kHz mono samples. Transcribe serves both whole-file and
// per-window decoding.
type Engine interface {
	Name() string
	Model() Model
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
	Close() error
}

// Loader resolves a model to a ready engine.
type Loader func(ctx context.Context, m Model) (Engine, error)

type ModelLoadError struct {
	Model Model
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// DecodeError reports a failed decode. Window is the zero-based chunk index,
// or -1 for a whole-file decode.
type DecodeError struct {
	Window int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Window < 0 {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode window %d: %v", e.Window, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
