package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/gemini"
	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/prompt"
	"github.com/digkill/magicpic/internal/repository"
)

const trialExhaustedMessage = "Your free trial has ended. Please sign up or log in to continue creating!"

type GuestInput struct {
	DeviceID string
	StyleID  int64
	Image    []byte
	MIME     string
}

// GuestImage is returned to the client as raw bytes; nothing is stored.
type GuestImage struct {
	Data []byte
	MIME string
}

// GuestService grants one unauthenticated generation per device identifier.
type GuestService struct {
	guests   *repository.GuestRepository
	styles   *repository.StyleRepository
	ledger   *ledger.Ledger
	provider ImageProvider
	model    string
	metrics  Recorder
	log      *zap.Logger
}

func NewGuestService(guests *repository.GuestRepository, styles *repository.StyleRepository, l *ledger.Ledger, provider ImageProvider, model string, metrics Recorder, log *zap.Logger) *GuestService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GuestService{
		guests:   guests,
		styles:   styles,
		ledger:   l,
		provider: provider,
		model:    model,
		metrics:  metrics,
		log:      log,
	}
}

// Generate checks the device before anything else, so a repeat visitor never
// reaches validation or the provider.
func (s *GuestService) Generate(ctx context.Context, in GuestInput) (img *GuestImage, err error) {
	defer func() { s.metrics.Generation("guest", outcomeOf(err)) }()

	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		return nil, reject(CodeValidation, "device_id is required.")
	}
	usage, err := s.guests.FindByDevice(ctx, deviceID)
	if err != nil {
		return nil, internal(fmt.Errorf("load guest usage: %w", err))
	}
	if usage != nil {
		return nil, reject(CodeTrialExhausted, trialExhaustedMessage)
	}

	if err := ValidateImage(in.Image, in.MIME); err != nil {
		return nil, err
	}
	if in.StyleID <= 0 {
		return nil, reject(CodeValidation, "style_id must be a positive integer.")
	}

	style, err := s.styles.GetActive(ctx, in.StyleID)
	if err != nil {
		return nil, internal(fmt.Errorf("load style: %w", err))
	}
	if style == nil {
		return nil, reject(CodeStyleNotFound, "Style not found.")
	}

	finalPrompt := prompt.Compose(style.PromptTemplate, models.Modifiers{})
	result, err := s.provider.TransformWith(ctx, s.model, gemini.Image{Data: in.Image, MIME: in.MIME}, finalPrompt)
	if err != nil {
		var exhausted *gemini.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &Error{Code: CodeAIService, Message: "AI generation failed: " + exhausted.Detail(), Err: err}
		}
		return nil, &Error{Code: CodeAIService, Message: "AI generation failed.", Err: err}
	}

	if err := s.ledger.CommitGuestTrial(ctx, deviceID, style.ID); err != nil {
		if errors.Is(err, ledger.ErrTrialExhausted) {
			return nil, reject(CodeTrialExhausted, trialExhaustedMessage)
		}
		return nil, internal(fmt.Errorf("record guest usage: %w", err))
	}

	s.log.Info("guest trial used", zap.String("device_id", deviceID), zap.Int64("style_id", style.ID), zap.String("model", result.Model))
	return &GuestImage{Data: result.Image.Data, MIME: result.Image.MIME}, nil
}
