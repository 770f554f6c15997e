package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/storage"
)

// BlobStore is the storage surface for admin uploads.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URLSigner
}

type CatalogService struct {
	categories *repository.CategoryRepository
	styles     *repository.StyleRepository
	store      BlobStore
	log        *zap.Logger
}

func NewCatalogService(categories *repository.CategoryRepository, styles *repository.StyleRepository, store BlobStore, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{categories: categories, styles: styles, store: store, log: log}
}

func (s *CatalogService) presenter() presenter {
	return presenter{signer: s.store, log: s.log}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases and collapses every run of other characters to one dash.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type StyleQuery struct {
	CategorySlug string
	Trending     *bool
	Search       string
}

func (s *CatalogService) ListStyles(ctx context.Context, q StyleQuery) ([]StyleView, error) {
	styles, err := s.styles.List(ctx, repository.StyleFilter{
		CategorySlug: q.CategorySlug,
		Trending:     q.Trending,
		Search:       q.Search,
	})
	if err != nil {
		return nil, internal(err)
	}
	return s.presenter().styles(ctx, styles, false), nil
}

func (s *CatalogService) Trending(ctx context.Context) ([]StyleView, error) {
	styles, err := s.styles.Trending(ctx, 10)
	if err != nil {
		return nil, internal(err)
	}
	return s.presenter().styles(ctx, styles, false), nil
}

func (s *CatalogService) Categories(ctx context.Context, activeOnly bool) ([]CategoryView, error) {
	cats, err := s.categories.ListWithCounts(ctx, activeOnly)
	if err != nil {
		return nil, internal(err)
	}
	p := s.presenter()
	out := make([]CategoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, p.categoryWithCount(ctx, c))
	}
	return out, nil
}

type CategoryInput struct {
	Name         *string `json:"name"`
	Slug         *string `json:"slug"`
	Icon         *string `json:"icon"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

func (in CategoryInput) apply(c *models.Category) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		c.Slug = Slugify(*in.Slug)
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.DisplayOrder != nil {
		c.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*CategoryView, error) {
	c := &models.Category{IsActive: true}
	in.apply(c)
	if c.Name == "" {
		return nil, reject(CodeValidation, "name is required")
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	created, err := s.categories.Create(ctx, c)
	if err != nil {
		return nil, conflictOrInternal(err, "Category name or slug already exists")
	}
	return s.presenter().category(ctx, created), nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*CategoryView, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if c == nil {
		return nil, reject(CodeNotFound, "Category not found")
	}
	in.apply(c)
	if c.Name == "" || c.Slug == "" {
		return nil, reject(CodeValidation, "name and slug must not be empty")
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, conflictOrInternal(err, "Category name or slug already exists")
	}
	return s.presenter().category(ctx, c), nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(CodeNotFound, "Category not found")
		}
		return internal(err)
	}
	return nil
}

type StyleInput struct {
	CategoryID      *int64    `json:"category_id"`
	Name            *string   `json:"name"`
	Slug            *string   `json:"slug"`
	Description     *string   `json:"description"`
	PromptTemplate  *string   `json:"prompt_template"`
	NegativePrompt  *string   `json:"negative_prompt"`
	Tags            *[]string `json:"tags"`
	CreditsRequired *int      `json:"credits_required"`
	IsTrending      *bool     `json:"is_trending"`
	IsNew           *bool     `json:"is_new"`
	IsActive        *bool     `json:"is_active"`
	DisplayOrder    *int      `json:"display_order"`
}

func (in StyleInput) apply(st *models.Style) {
	if in.CategoryID != nil {
		st.CategoryID = *in.CategoryID
	}
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		st.Slug = Slugify(*in.Slug)
	}
	if in.Description != nil {
		st.Description = *in.Description
	}
	if in.PromptTemplate != nil {
		st.PromptTemplate = strings.TrimSpace(*in.PromptTemplate)
	}
	if in.NegativePrompt != nil {
		st.NegativePrompt = *in.NegativePrompt
	}
	if in.Tags != nil {
		st.Tags = *in.Tags
	}
	if in.CreditsRequired != nil {
		st.CreditsRequired = *in.CreditsRequired
	}
	if in.IsTrending != nil {
		st.IsTrending = *in.IsTrending
	}
	if in.IsNew != nil {
		st.IsNew = *in.IsNew
	}
	if in.IsActive != nil {
		st.IsActive = *in.IsActive
	}
	if in.DisplayOrder != nil {
		st.DisplayOrder = *in.DisplayOrder
	}
}

func (s *CatalogService) validateStyle(ctx context.Context, st *models.Style) error {
	switch {
	case st.Name == "":
		return reject(CodeValidation, "name is required")
	case st.Slug == "":
		return reject(CodeValidation, "slug is required")
	case st.PromptTemplate == "":
		return reject(CodeValidation, "prompt_template is required")
	case st.CreditsRequired <= 0:
		return reject(CodeValidation, "credits_required must be positive")
	}
	cat, err := s.categories.GetByID(ctx, st.CategoryID)
	if err != nil {
		return internal(err)
	}
	if cat == nil {
		return reject(CodeValidation, "category_id does not exist")
	}
	return nil
}

func (s *CatalogService) ListAllStyles(ctx context.Context, search string) ([]StyleView, error) {
	styles, err := s.styles.List(ctx, repository.StyleFilter{IncludeInactive: true, Search: search})
	if err != nil {
		return nil, internal(err)
	}
	return s.presenter().styles(ctx, styles, true), nil
}

func (s *CatalogService) GetStyle(ctx context.Context, id int64) (*StyleView, error) {
	st, err := s.styles.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if st == nil {
		return nil, reject(CodeStyleNotFound, "Style not found.")
	}
	return s.presenter().style(ctx, st, true), nil
}

func (s *CatalogService) CreateStyle(ctx context.Context, in StyleInput) (*StyleView, error) {
	st := &models.Style{CreditsRequired: 50, IsNew: true, IsActive: true}
	in.apply(st)
	if st.Slug == "" {
		st.Slug = Slugify(st.Name)
	}
	if err := s.validateStyle(ctx, st); err != nil {
		return nil, err
	}
	created, err := s.styles.Create(ctx, st)
	if err != nil {
		return nil, conflictOrInternal(err, "Style slug already exists")
	}
	return s.presenter().style(ctx, created, true), nil
}

func (s *CatalogService) UpdateStyle(ctx context.Context, id int64, in StyleInput) (*StyleView, error) {
	st, err := s.styles.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if st == nil {
		return nil, reject(CodeStyleNotFound, "Style not found.")
	}
	in.apply(st)
	if err := s.validateStyle(ctx, st); err != nil {
		return nil, err
	}
	if err := s.styles.Update(ctx, st); err != nil {
		return nil, conflictOrInternal(err, "Style slug already exists")
	}
	return s.GetStyle(ctx, id)
}

func (s *CatalogService) DeleteStyle(ctx context.Context, id int64) error {
	if err := s.styles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(CodeStyleNotFound, "Style not found.")
		}
		return internal(err)
	}
	return nil
}

// UploadStyleThumbnail stores the preview under styles/thumbnails/<slug>.<ext>
// and points the style at the new key.
func (s *CatalogService) UploadStyleThumbnail(ctx context.Context, id int64, data []byte, mime string) (*StyleView, error) {
	if err := ValidateImage(data, mime); err != nil {
		return nil, err
	}
	st, err := s.styles.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if st == nil {
		return nil, reject(CodeStyleNotFound, "Style not found.")
	}
	key := storage.StyleThumbnailKey(st.Slug, mime)
	if err := s.store.Put(ctx, key, data, mime); err != nil {
		return nil, internal(fmt.Errorf("store thumbnail: %w", err))
	}
	if err := s.styles.SetPreviewKey(ctx, id, key); err != nil {
		return nil, internal(err)
	}
	st.PreviewKey = key
	return s.presenter().style(ctx, st, true), nil
}

func conflictOrInternal(err error, msg string) *Error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &Error{Code: CodeConflict, Message: msg, Err: err}
	}
	return internal(err)
}
