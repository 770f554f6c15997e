package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai SDK this package needs; *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGenAI opens an SDK client against the Gemini API.
func NewGenAI(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Model is a Candidate backed by one Gemini image model.
type Model struct {
	name string
	gen  ContentGenerator
}

func NewModel(name string, gen ContentGenerator) *Model {
	return &Model{name: name, gen: gen}
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) Attempt(ctx context.Context, image Image, prompt string) (*Image, error) {
	content := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image.Data, image.MIME),
		},
	}

	resp, err := m.gen.GenerateContent(ctx, m.name, []*genai.Content{content}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return firstImage(resp)
}

func firstImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil {
		return nil, ErrNoImage
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime != "" && !strings.HasPrefix(mime, "image/") {
				continue
			}
			if mime == "" {
				mime = "image/png"
			}
			return &Image{Data: part.InlineData.Data, MIME: mime}, nil
		}
	}
	return nil, ErrNoImage
}

// Provider owns the configured model order and builds chains over it.
type Provider struct {
	gen     ContentGenerator
	chain   *Chain
	timeout time.Duration
	opts    []ChainOption
}

func NewProvider(gen ContentGenerator, models []string, timeout time.Duration, opts ...ChainOption) *Provider {
	candidates := make([]Candidate, 0, len(models))
	for _, name := range models {
		candidates = append(candidates, NewModel(name, gen))
	}
	return &Provider{
		gen:     gen,
		chain:   NewChain(candidates, timeout, opts...),
		timeout: timeout,
		opts:    opts,
	}
}

// Transform walks the full fallback chain.
func (p *Provider) Transform(ctx context.Context, image Image, prompt string) (*Result, error) {
	return p.chain.Run(ctx, image, prompt)
}

// TransformWith restricts the attempt to the single named model.
func (p *Provider) TransformWith(ctx context.Context, model string, image Image, prompt string) (*Result, error) {
	if model == "" {
		return p.Transform(ctx, image, prompt)
	}
	return NewChain([]Candidate{NewModel(model, p.gen)}, p.timeout, p.opts...).Run(ctx, image, prompt)
}

func (p *Provider) Models() []string {
	return p.chain.Candidates()
}
