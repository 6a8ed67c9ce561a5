package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"wisp/log"
)

var openaiModels = map[Size]string{
	Base:  "gpt-4o-mini-transcribe",
	Small: openai.Whisper1,
	Large: "gpt-4o-transcribe",
}

type OpenAIEngine struct {
	client *openai.Client
	size   Size
}

// NewOpenAI builds an engine on the official API, or on baseURL when set.
func NewOpenAI(apiKey, baseURL string, size Size) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg), size: size}
}

func (o *OpenAIEngine) Name() string { return "openai" }

func (o *OpenAIEngine) Model() Model { return Model{Variant: OpenAI, Size: o.size} }

func (o *OpenAIEngine) Close() error { return nil }

func (o *OpenAIEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	audioData, err := encodeUpload(samples)
	if err != nil {
		return Result{}, fmt.Errorf("encode upload: %w", err)
	}

	model := openaiModels[o.size]
	// Only whisper-1 reports the detected language.
	format := openai.AudioResponseFormatJSON
	if model == openai.Whisper1 {
		format = openai.AudioResponseFormatVerboseJSON
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: "audio.flac",
		Reader:   bytes.NewReader(audioData),
		Language: opts.Language,
		Format:   format,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai transcription: %w", err)
	}
	log.Infof("openai %s upload=%dB audio=%.1fs", model, len(audioData), resp.Duration)

	lang := opts.Language
	if lang == "" {
		lang = isoLanguage(resp.Language)
	}
	return Result{Text: strings.TrimSpace(resp.Text), Language: lang}, nil
}
