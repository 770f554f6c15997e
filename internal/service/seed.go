package service

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/storage"
)

// CatalogSeed is the on-disk catalog description consumed by `magicpic seed`.
type CatalogSeed struct {
	Categories []SeedCategory `toml:"categories"`
	Styles     []SeedStyle    `toml:"styles"`
}

type SeedCategory struct {
	Name         string `toml:"name"`
	Slug         string `toml:"slug"`
	Icon         string `toml:"icon"`
	Description  string `toml:"description"`
	DisplayOrder int    `toml:"display_order"`
}

type SeedStyle struct {
	Name            string   `toml:"name"`
	Slug            string   `toml:"slug"`
	Category        string   `toml:"category"`
	Description     string   `toml:"description"`
	PromptTemplate  string   `toml:"prompt_template"`
	NegativePrompt  string   `toml:"negative_prompt"`
	Tags            []string `toml:"tags"`
	CreditsRequired int      `toml:"credits_required"`
	IsTrending      bool     `toml:"is_trending"`
	IsNew           bool     `toml:"is_new"`
	DisplayOrder    int      `toml:"display_order"`
}

func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	var seed CatalogSeed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return &seed, nil
}

type SeedReport struct {
	CategoriesCreated int
	CategoriesUpdated int
	StylesCreated     int
	StylesUpdated     int
}

// SeedPreview, when set, is uploaded as the thumbnail of every seeded entry.
type SeedPreview struct {
	Data []byte
	MIME string
}

// Seed upserts the catalog by slug. Running it twice is a no-op apart from
// overwriting edited fields with the file's values.
func (s *CatalogService) Seed(ctx context.Context, seed *CatalogSeed, preview *SeedPreview) (SeedReport, error) {
	var report SeedReport
	categoryIDs := map[string]int64{}

	for _, sc := range seed.Categories {
		slug := sc.Slug
		if slug == "" {
			slug = Slugify(sc.Name)
		}
		previewKey, err := s.seedPreview(ctx, preview, storage.CategoryThumbnailKey(slug, mimeOf(preview)))
		if err != nil {
			return report, err
		}

		existing, err := s.categories.GetBySlug(ctx, slug)
		if err != nil {
			return report, fmt.Errorf("load category %s: %w", slug, err)
		}
		c := &models.Category{IsActive: true}
		if existing != nil {
			c = existing
		}
		c.Name, c.Slug, c.Icon, c.Description, c.DisplayOrder = sc.Name, slug, sc.Icon, sc.Description, sc.DisplayOrder
		if previewKey != "" {
			c.PreviewKey = previewKey
		}

		if existing != nil {
			if err := s.categories.Update(ctx, c); err != nil {
				return report, fmt.Errorf("update category %s: %w", slug, err)
			}
			report.CategoriesUpdated++
		} else {
			if c, err = s.categories.Create(ctx, c); err != nil {
				return report, fmt.Errorf("create category %s: %w", slug, err)
			}
			report.CategoriesCreated++
		}
		categoryIDs[slug] = c.ID
	}

	for _, ss := range seed.Styles {
		slug := ss.Slug
		if slug == "" {
			slug = Slugify(ss.Name)
		}
		categoryID, ok := categoryIDs[ss.Category]
		if !ok {
			cat, err := s.categories.GetBySlug(ctx, ss.Category)
			if err != nil {
				return report, fmt.Errorf("load category %s: %w", ss.Category, err)
			}
			if cat == nil {
				return report, fmt.Errorf("style %s: unknown category %q", slug, ss.Category)
			}
			categoryID = cat.ID
		}
		credits := ss.CreditsRequired
		if credits <= 0 {
			credits = 50
		}
		previewKey, err := s.seedPreview(ctx, preview, storage.StyleThumbnailKey(slug, mimeOf(preview)))
		if err != nil {
			return report, err
		}

		existing, err := s.styles.GetBySlug(ctx, slug)
		if err != nil {
			return report, fmt.Errorf("load style %s: %w", slug, err)
		}
		st := &models.Style{IsActive: true}
		if existing != nil {
			st = existing
		}
		st.CategoryID = categoryID
		st.Name = ss.Name
		st.Slug = slug
		st.Description = ss.Description
		st.PromptTemplate = ss.PromptTemplate
		st.NegativePrompt = ss.NegativePrompt
		st.Tags = ss.Tags
		st.CreditsRequired = credits
		st.IsTrending = ss.IsTrending
		st.IsNew = ss.IsNew
		st.DisplayOrder = ss.DisplayOrder
		if previewKey != "" {
			st.PreviewKey = previewKey
		}

		if existing != nil {
			if err := s.styles.Update(ctx, st); err != nil {
				return report, fmt.Errorf("update style %s: %w", slug, err)
			}
			report.StylesUpdated++
		} else {
			if _, err := s.styles.Create(ctx, st); err != nil {
				return report, fmt.Errorf("create style %s: %w", slug, err)
			}
			report.StylesCreated++
		}
	}

	s.log.Info("catalog seeded",
		zap.Int("categories_created", report.CategoriesCreated),
		zap.Int("categories_updated", report.CategoriesUpdated),
		zap.Int("styles_created", report.StylesCreated),
		zap.Int("styles_updated", report.StylesUpdated),
	)
	return report, nil
}

func (s *CatalogService) seedPreview(ctx context.Context, preview *SeedPreview, key string) (string, error) {
	if preview == nil || len(preview.Data) == 0 {
		return "", nil
	}
	if err := s.store.Put(ctx, key, preview.Data, preview.MIME); err != nil {
		return "", fmt.Errorf("upload preview %s: %w", key, err)
	}
	return key, nil
}

func mimeOf(p *SeedPreview) string {
	if p == nil {
		return ""
	}
	return p.MIME
}
