package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"wisp/log"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

var groqModels = map[Size]string{
	Base:  "distil-whisper-large-v3-en",
	Small: "whisper-large-v3-turbo",
	Large: "whisper-large-v3",
}

type GroqEngine struct {
	client *TracedClient
	apiURL string
	apiKey string
	size   Size
}

func NewGroq(apiKey, apiURL string, size Size) *GroqEngine {
	if apiURL == "" {
		apiURL = groqAPIURL
	}
	g := &GroqEngine{
		client: NewTracedClient(apiURL),
		apiURL: apiURL,
		apiKey: apiKey,
		size:   size,
	}
	if apiURL == groqAPIURL {
		go g.client.Warm(context.Background())
	}
	return g
}

func (g *GroqEngine) Name() string { return "groq" }

func (g *GroqEngine) Model() Model { return Model{Variant: Groq, Size: g.size} }

func (g *GroqEngine) Close() error { return nil }

type groqResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func (g *GroqEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	audioData, err := encodeUpload(samples)
	if err != nil {
		return Result{}, fmt.Errorf("encode upload: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(audioData); err != nil {
		return Result{}, err
	}

	writer.WriteField("model", groqModels[g.size])
	writer.WriteField("response_format", "verbose_json")
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("groq API error %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return Result{}, fmt.Errorf("groq response parse error: %w", err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	log.Infof("groq %s audio=%.1fs ratelimit=%s/%s %s", groqModels[g.size], gResp.Duration, remaining, limit, resp.Metrics)

	lang := opts.Language
	if lang == "" {
		lang = isoLanguage(gResp.Language)
	}
	return Result{Text: strings.TrimSpace(gResp.Text), Language: lang}, nil
}
