package transcriber

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey = errors.New("api key not set")
	ErrUnknownModel  = errors.New("unknown model")
)

type LoaderConfig struct {
	ModelDir   string // directory holding ggml-*.bin files
	WhisperBin string // whisper-cli path or name on PATH
	OpenAIKey  string
	GroqKey    string
	OpenAIURL  string // overrides for tests
	GroqURL    string
}

// NewLoader returns a Loader that builds engines from cfg. Load failures are
// wrapped in *ModelLoadError.
func NewLoader(cfg LoaderConfig) Loader {
	return func(ctx context.Context, m Model) (Engine, error) {
		eng, err := load(ctx, cfg, m)
		if err != nil {
			return nil, &ModelLoadError{Model: m, Err: err}
		}
		return eng, nil
	}
}

func load(ctx context.Context, cfg LoaderConfig, m Model) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ParseSize(string(m.Size)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, m.Size)
	}
	switch m.Variant {
	case WhisperCpp:
		return NewWhisperCpp(cfg.WhisperBin, cfg.ModelDir, m.Size)
	case OpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingAPIKey)
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIURL, m.Size), nil
	case Groq:
		if cfg.GroqKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY: %w", ErrMissingAPIKey)
		}
		return NewGroq(cfg.GroqKey, cfg.GroqURL, m.Size), nil
	}
	return nil, fmt.Errorf("%w: engine %q", ErrUnknownModel, m.Variant)
}
