package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
)

// URLSigner turns a stored key (or legacy URL) into something a client can fetch.
type URLSigner interface {
	PresignGet(ctx context.Context, ref string) (string, error)
}

type CategoryView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Icon         string `json:"icon,omitempty"`
	Description  string `json:"description,omitempty"`
	PreviewURL   string `json:"preview_url,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
	StylesCount  *int   `json:"styles_count,omitempty"`
}

type StyleView struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description,omitempty"`
	PreviewURL      string        `json:"preview_url"`
	Category        *CategoryView `json:"category,omitempty"`
	UsesCount       int           `json:"uses_count"`
	IsTrending      bool          `json:"is_trending"`
	IsNew           bool          `json:"is_new"`
	IsActive        bool          `json:"is_active"`
	Tags            []string      `json:"tags"`
	CreditsRequired int           `json:"credits_required"`
	DisplayOrder    int           `json:"display_order"`

	// Admin-only fields; empty on public listings.
	PromptTemplate string `json:"prompt_template,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type CreationView struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id,omitempty"`
	OriginalImageURL  string     `json:"original_image_url"`
	GeneratedImageURL string     `json:"generated_image_url"`
	ThumbnailURL      string     `json:"thumbnail_url"`
	Style             *StyleView `json:"style,omitempty"`
	Mood              string     `json:"mood,omitempty"`
	Weather           string     `json:"weather,omitempty"`
	DressStyle        string     `json:"dress_style,omitempty"`
	CustomPrompt      string     `json:"custom_prompt,omitempty"`
	IsPublic          bool       `json:"is_public"`
	IsDeleted         bool       `json:"is_deleted,omitempty"`
	CreditsUsed       int        `json:"credits_used"`
	CreditsRemaining  *int       `json:"credits_remaining,omitempty"`
	ProcessingTime    float64    `json:"processing_time"`
	CreatedAt         time.Time  `json:"created_at"`
}

// presenter signs every stored key on the way out. A signing failure is
// logged and yields an empty URL rather than failing the whole response.
type presenter struct {
	signer URLSigner
	log    *zap.Logger
}

func (p presenter) url(ctx context.Context, ref string) string {
	if ref == "" || p.signer == nil {
		return ref
	}
	u, err := p.signer.PresignGet(ctx, ref)
	if err != nil {
		p.log.Warn("presign failed", zap.String("ref", ref), zap.Error(err))
		return ""
	}
	return u
}

func (p presenter) category(ctx context.Context, c *models.Category) *CategoryView {
	if c == nil {
		return nil
	}
	return &CategoryView{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Icon:         c.Icon,
		Description:  c.Description,
		PreviewURL:   p.url(ctx, c.PreviewKey),
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
	}
}

func (p presenter) categoryWithCount(ctx context.Context, c repository.CategoryWithCount) CategoryView {
	v := p.category(ctx, &c.Category)
	n := c.StylesCount
	v.StylesCount = &n
	return *v
}

func (p presenter) style(ctx context.Context, s *models.Style, admin bool) *StyleView {
	if s == nil {
		return nil
	}
	v := &StyleView{
		ID:              s.ID,
		Name:            s.Name,
		Slug:            s.Slug,
		Description:     s.Description,
		PreviewURL:      p.url(ctx, s.PreviewKey),
		Category:        p.category(ctx, s.Category),
		UsesCount:       s.UsesCount,
		IsTrending:      s.IsTrending,
		IsNew:           s.IsNew,
		IsActive:        s.IsActive,
		Tags:            s.Tags,
		CreditsRequired: s.CreditsRequired,
		DisplayOrder:    s.DisplayOrder,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if admin {
		v.PromptTemplate = s.PromptTemplate
		v.NegativePrompt = s.NegativePrompt
	}
	return v
}

func (p presenter) styles(ctx context.Context, styles []models.Style, admin bool) []StyleView {
	out := make([]StyleView, 0, len(styles))
	for i := range styles {
		out = append(out, *p.style(ctx, &styles[i], admin))
	}
	return out
}

func (p presenter) creation(ctx context.Context, c *models.Creation, remaining *int) CreationView {
	return CreationView{
		ID:                c.ID,
		UserID:            c.UserID,
		OriginalImageURL:  p.url(ctx, c.OriginalKey),
		GeneratedImageURL: p.url(ctx, c.GeneratedKey),
		ThumbnailURL:      p.url(ctx, c.ThumbnailKey),
		Style:             p.style(ctx, c.Style, false),
		Mood:              c.Modifiers.Mood,
		Weather:           c.Modifiers.Weather,
		DressStyle:        c.Modifiers.DressStyle,
		CustomPrompt:      c.Modifiers.CustomPrompt,
		IsPublic:          c.IsPublic,
		IsDeleted:         c.IsDeleted,
		CreditsUsed:       c.CreditsUsed,
		CreditsRemaining:  remaining,
		ProcessingTime:    c.ProcessingTime,
		CreatedAt:         c.CreatedAt,
	}
}
