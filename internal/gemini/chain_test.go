package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeCandidate struct {
	name  string
	out   *Image
	err   error
	delay time.Duration
	calls int
}

func (f *fakeCandidate) Name() string { return f.name }

func (f *fakeCandidate) Attempt(ctx context.Context, _ Image, _ string) (*Image, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []string
}

func (r *recordingObserver) ObserveAttempt(candidate string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.attempts = append(r.attempts, candidate+"="+outcome)
}

var photo = Image{Data: []byte("jpeg"), MIME: "image/jpeg"}

func TestChainFallsThroughToFirstSuccess(t *testing.T) {
	a := &fakeCandidate{name: "A", err: errors.New("quota exceeded")}
	b := &fakeCandidate{name: "B"}
	c := &fakeCandidate{name: "C", out: &Image{Data: []byte("png"), MIME: "image/png"}}
	d := &fakeCandidate{name: "D", out: &Image{Data: []byte("never")}}
	obs := &recordingObserver{}

	res, err := NewChain([]Candidate{a, b, c, d}, time.Second, WithObserver(obs)).Run(context.Background(), photo, "p")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Model != "C" || string(res.Image.Data) != "png" {
		t.Errorf("Run() = %+v, want C's image", res)
	}
	if len(res.Failures) != 2 || res.Failures[0].Candidate != "A" || !errors.Is(res.Failures[1].Err, ErrNoImage) {
		t.Errorf("Failures = %v", res.Failures)
	}
	if d.calls != 0 {
		t.Errorf("candidate after success called %d times", d.calls)
	}
	if got := strings.Join(obs.attempts, ","); got != "A=error,B=error,C=ok" {
		t.Errorf("observed = %s", got)
	}
}

func TestChainExhausted(t *testing.T) {
	a := &fakeCandidate{name: "A", err: errors.New("boom")}
	b := &fakeCandidate{name: "B", err: errors.New("bad request")}

	_, err := NewChain([]Candidate{a, b}, 0).Run(context.Background(), photo, "p")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Run() error = %v, want ExhaustedError", err)
	}
	if got := exhausted.Detail(); got != "A: boom | B: bad request" {
		t.Errorf("Detail() = %q", got)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d, %d; want each exactly once", a.calls, b.calls)
	}
}

func TestChainPerCandidateTimeout(t *testing.T) {
	slow := &fakeCandidate{name: "slow", delay: time.Second, out: &Image{Data: []byte("late")}}
	fast := &fakeCandidate{name: "fast", out: &Image{Data: []byte("ok")}}

	res, err := NewChain([]Candidate{slow, fast}, 20*time.Millisecond).Run(context.Background(), photo, "p")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Model != "fast" {
		t.Errorf("Model = %s, want fast", res.Model)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, context.DeadlineExceeded) {
		t.Errorf("Failures = %v, want deadline exceeded", res.Failures)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	a := &fakeCandidate{name: "A", out: &Image{Data: []byte("x")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain([]Candidate{a}, time.Second).Run(ctx, photo, "p")
	if err == nil || a.calls != 0 {
		t.Fatalf("Run() = %v with %d calls, want no attempt", err, a.calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || !errors.Is(exhausted.Failures[0].Err, context.Canceled) {
		t.Errorf("Run() error = %v", err)
	}
}

type fakeGenerator struct {
	mu     sync.Mutex
	models []string
	resp   map[string]*genai.GenerateContentResponse
	errs   map[string]error
	config *genai.GenerateContentConfig
	parts  []*genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.config = config
	if len(contents) > 0 {
		f.parts = contents[0].Parts
	}
	if err := f.errs[model]; err != nil {
		return nil, err
	}
	return f.resp[model], nil
}

func imageResponse(data, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("here you go"),
				{InlineData: &genai.Blob{Data: []byte(data), MIMEType: mime}},
			}},
		}},
	}
}

func TestProviderTransform(t *testing.T) {
	gen := &fakeGenerator{
		errs: map[string]error{"m1": errors.New("unavailable")},
		resp: map[string]*genai.GenerateContentResponse{
			"m2": {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText("no")}}}}},
			"m3": imageResponse("result", "image/png"),
		},
	}
	p := NewProvider(gen, []string{"m1", "m2", "m3"}, time.Second)

	res, err := p.Transform(context.Background(), photo, "make it ghibli")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.Model != "m3" || string(res.Image.Data) != "result" || res.Image.MIME != "image/png" {
		t.Errorf("Transform() = %+v", res)
	}
	if strings.Join(gen.models, ",") != "m1,m2,m3" {
		t.Errorf("models called = %v", gen.models)
	}
	if len(gen.config.ResponseModalities) != 1 || gen.config.ResponseModalities[0] != "IMAGE" {
		t.Errorf("ResponseModalities = %v", gen.config.ResponseModalities)
	}
	if len(gen.parts) != 2 || gen.parts[0].Text != "make it ghibli" || gen.parts[1].InlineData == nil {
		t.Errorf("request parts = %+v", gen.parts)
	}
}

func TestProviderTransformWithOverride(t *testing.T) {
	gen := &fakeGenerator{resp: map[string]*genai.GenerateContentResponse{
		"m1":    imageResponse("default", "image/png"),
		"guest": imageResponse("guest", "image/webp"),
	}}
	p := NewProvider(gen, []string{"m1"}, time.Second)

	res, err := p.TransformWith(context.Background(), "guest", photo, "p")
	if err != nil {
		t.Fatalf("TransformWith() error = %v", err)
	}
	if res.Model != "guest" || string(res.Image.Data) != "guest" {
		t.Errorf("TransformWith() = %+v", res)
	}
	if len(gen.models) != 1 || gen.models[0] != "guest" {
		t.Errorf("models called = %v, want only the override", gen.models)
	}
}

func TestFirstImageSkipsNonImageBlobs(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: []byte("{}"), MIMEType: "application/json"}},
			{InlineData: &genai.Blob{Data: []byte("img")}},
		}},
	}}}
	img, err := firstImage(resp)
	if err != nil {
		t.Fatalf("firstImage() error = %v", err)
	}
	if string(img.Data) != "img" || img.MIME != "image/png" {
		t.Errorf("firstImage() = %+v", img)
	}
	if _, err := firstImage(nil); !errors.Is(err, ErrNoImage) {
		t.Errorf("firstImage(nil) error = %v", err)
	}
}
