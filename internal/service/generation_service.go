package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/alert"
	"github.com/digkill/magicpic/internal/gemini"
	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/prompt"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/storage"
)

const (
	MaxImageBytes      = 10 << 20
	MaxModifierLength  = 50
	MaxCustomPromptLen = 200
)

const accountGoneMessage = "Account no longer exists."

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ObjectStore is the storage surface the generation path writes through.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URLSigner
}

// ImageProvider runs the model fallback chain.
type ImageProvider interface {
	Transform(ctx context.Context, image gemini.Image, prompt string) (*gemini.Result, error)
	TransformWith(ctx context.Context, model string, image gemini.Image, prompt string) (*gemini.Result, error)
}

// Recorder counts finished generation requests.
type Recorder interface {
	Generation(path, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Generation(string, string) {}

type GenerateInput struct {
	UserID    int64
	StyleID   int64
	Image     []byte
	MIME      string
	Modifiers models.Modifiers
	IsPublic  bool
}

type GenerationService struct {
	styles    *repository.StyleRepository
	users     *repository.UserRepository
	creations *repository.CreationRepository
	ledger    *ledger.Ledger
	store     ObjectStore
	provider  ImageProvider
	alerts    alert.Notifier
	metrics   Recorder
	log       *zap.Logger
	now       func() time.Time
}

type GenerationDeps struct {
	Styles    *repository.StyleRepository
	Users     *repository.UserRepository
	Creations *repository.CreationRepository
	Ledger    *ledger.Ledger
	Store     ObjectStore
	Provider  ImageProvider
	Alerts    alert.Notifier
	Metrics   Recorder
	Log       *zap.Logger
}

func NewGenerationService(d GenerationDeps) *GenerationService {
	s := &GenerationService{
		styles:    d.Styles,
		users:     d.Users,
		creations: d.Creations,
		ledger:    d.Ledger,
		store:     d.Store,
		provider:  d.Provider,
		alerts:    d.Alerts,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       time.Now,
	}
	if s.alerts == nil {
		s.alerts = alert.Nop{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// ValidateImage checks type before size, matching what clients are told first.
func ValidateImage(data []byte, mime string) error {
	if !allowedImageTypes[mime] {
		return reject(CodeInvalidImage, "Only JPG, PNG, and WebP images are supported.")
	}
	if len(data) == 0 {
		return reject(CodeInvalidImage, "Image is empty.")
	}
	if len(data) > MaxImageBytes {
		return reject(CodeImageTooLarge, "Image must be under 10 MB.")
	}
	return nil
}

// ValidateModifiers enforces the length limits on free-text options.
func ValidateModifiers(m models.Modifiers) error {
	for name, v := range map[string]string{"mood": m.Mood, "weather": m.Weather, "dress_style": m.DressStyle} {
		if utf8.RuneCountInString(v) > MaxModifierLength {
			return reject(CodeValidation, fmt.Sprintf("%s must be at most %d characters.", name, MaxModifierLength))
		}
	}
	if utf8.RuneCountInString(m.CustomPrompt) > MaxCustomPromptLen {
		return reject(CodeValidation, fmt.Sprintf("custom_prompt must be at most %d characters.", MaxCustomPromptLen))
	}
	return nil
}

// Generate runs one credit-gated generation. Credits move only inside the final
// ledger transaction, so every earlier failure leaves the balance untouched.
// The uploaded original is not removed on later failure; the sweep collects it.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput) (view *CreationView, err error) {
	defer func() { s.metrics.Generation("user", outcomeOf(err)) }()

	if err := ValidateImage(in.Image, in.MIME); err != nil {
		return nil, err
	}
	if err := ValidateModifiers(in.Modifiers); err != nil {
		return nil, err
	}

	style, err := s.styles.GetActive(ctx, in.StyleID)
	if err != nil {
		return nil, internal(fmt.Errorf("load style: %w", err))
	}
	if style == nil {
		return nil, reject(CodeStyleNotFound, "Style not found.")
	}

	balance, err := s.users.Balance(ctx, in.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reject(CodeUnauthorized, accountGoneMessage)
	}
	if err != nil {
		return nil, internal(fmt.Errorf("read balance: %w", err))
	}
	if balance < style.CreditsRequired {
		return nil, reject(CodeInsufficientCredits, fmt.Sprintf("You need %d credits. You have %d.", style.CreditsRequired, balance))
	}

	originalKey := storage.OriginalKey(in.UserID, in.MIME)
	if err := s.store.Put(ctx, originalKey, in.Image, in.MIME); err != nil {
		return nil, internal(fmt.Errorf("store original: %w", err))
	}

	finalPrompt := prompt.Compose(style.PromptTemplate, in.Modifiers)

	result, err := s.provider.Transform(ctx, gemini.Image{Data: in.Image, MIME: in.MIME}, finalPrompt)
	if err != nil {
		return nil, s.providerFailure(err)
	}
	if len(result.Failures) > 0 {
		s.log.Info("generation succeeded after fallback",
			zap.String("model", result.Model),
			zap.Int("failed_candidates", len(result.Failures)),
		)
	}

	generatedKey := storage.GeneratedKey(in.UserID, result.Image.MIME)
	if err := s.store.Put(ctx, generatedKey, result.Image.Data, result.Image.MIME); err != nil {
		return nil, internal(fmt.Errorf("store generated: %w", err))
	}

	creation := &models.Creation{
		UserID:         in.UserID,
		StyleID:        style.ID,
		OriginalKey:    originalKey,
		GeneratedKey:   generatedKey,
		ThumbnailKey:   generatedKey,
		Modifiers:      in.Modifiers,
		PromptUsed:     finalPrompt,
		CreditsUsed:    style.CreditsRequired,
		ProcessingTime: math.Round(result.Elapsed.Seconds()*100) / 100,
		IsPublic:       in.IsPublic,
	}
	remaining, err := s.ledger.CommitCreation(ctx, creation)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			return nil, reject(CodeInsufficientCredits, fmt.Sprintf("You need %d credits.", style.CreditsRequired))
		}
		if errors.Is(err, ledger.ErrUserNotFound) {
			return nil, reject(CodeUnauthorized, accountGoneMessage)
		}
		return nil, internal(fmt.Errorf("commit creation: %w", err))
	}

	s.log.Info("creation committed",
		zap.Int64("creation_id", creation.ID),
		zap.Int64("user_id", in.UserID),
		zap.Int64("style_id", style.ID),
		zap.String("model", result.Model),
		zap.Int("credits_used", creation.CreditsUsed),
		zap.Int("credits_remaining", remaining),
	)

	p := presenter{signer: s.store, log: s.log}
	stored, err := s.creations.GetByID(ctx, creation.ID)
	if err != nil || stored == nil {
		// The row is committed; answer from what we have.
		creation.Style = style
		creation.CreatedAt = s.now()
		stored = creation
	}
	v := p.creation(ctx, stored, &remaining)
	return &v, nil
}

func (s *GenerationService) providerFailure(err error) *Error {
	var exhausted *gemini.ExhaustedError
	if !errors.As(err, &exhausted) {
		return &Error{Code: CodeAIService, Message: "AI generation failed.", Err: err}
	}
	detail := exhausted.Detail()
	s.log.Warn("provider chain exhausted", zap.String("detail", detail))
	s.notify("MagicPic: all image models failed. " + detail)
	return &Error{Code: CodeAIService, Message: "AI generation failed for all models. Details: " + detail, Err: err}
}

func (s *GenerationService) notify(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.alerts.Notify(ctx, text); err != nil {
			s.log.Warn("send alert", zap.Error(err))
		}
	}()
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(CodeOf(err))
}
