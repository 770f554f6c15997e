package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/digkill/magicpic/internal/dbtest"
	"github.com/digkill/magicpic/internal/gemini"
	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/storage/storagetest"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	models  []string
	err     error
	out     gemini.Image
	gate    chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{out: gemini.Image{Data: []byte("generated"), MIME: "image/png"}}
}

func (p *fakeProvider) Transform(ctx context.Context, img gemini.Image, prompt string) (*gemini.Result, error) {
	return p.TransformWith(ctx, "", img, prompt)
}

func (p *fakeProvider) TransformWith(_ context.Context, model string, _ gemini.Image, prompt string) (*gemini.Result, error) {
	p.mu.Lock()
	p.calls++
	p.prompts = append(p.prompts, prompt)
	p.models = append(p.models, model)
	gate, err, out := p.gate, p.err, p.out
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &gemini.Result{Image: out, Model: "fake-model", Elapsed: 1234 * time.Millisecond}, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	n.sent = append(n.sent, text)
	n.mu.Unlock()
	if n.done != nil {
		n.done <- struct{}{}
	}
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *countingRecorder) Generation(path, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, path+":"+outcome)
}

type env struct {
	db       *sql.DB
	store    *storagetest.Memory
	provider *fakeProvider
	ledger   *ledger.Ledger
	users    *repository.UserRepository
	styles   *repository.StyleRepository
	creation *repository.CreationRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	return &env{
		db:       db,
		store:    storagetest.NewMemory(),
		provider: newFakeProvider(),
		ledger:   ledger.New(db),
		users:    repository.NewUserRepository(db),
		styles:   repository.NewStyleRepository(db),
		creation: repository.NewCreationRepository(db),
	}
}

func wantCode(t *testing.T, err error, want Code) {
	t.Helper()
	if got := CodeOf(err); got != want {
		t.Fatalf("error code = %q, want %q (err = %v)", got, want, err)
	}
}
