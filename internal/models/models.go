package models

import "time"

type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	Credits        int        `json:"credits"`
	ReferralCode   string     `json:"referral_code"`
	IsVerified     bool       `json:"is_verified"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Icon         string `json:"icon,omitempty"`
	Description  string `json:"description,omitempty"`
	PreviewKey   string `json:"preview_key,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// Style is a generation recipe. CreditsRequired is read at generation time and
// copied onto the Creation, so later edits never change past charges.
type Style struct {
	ID              int64     `json:"id"`
	CategoryID      int64     `json:"category_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description,omitempty"`
	PreviewKey      string    `json:"preview_key"`
	PromptTemplate  string    `json:"prompt_template"`
	NegativePrompt  string    `json:"negative_prompt,omitempty"`
	Tags            []string  `json:"tags"`
	CreditsRequired int       `json:"credits_required"`
	UsesCount       int       `json:"uses_count"`
	IsTrending      bool      `json:"is_trending"`
	IsNew           bool      `json:"is_new"`
	IsActive        bool      `json:"is_active"`
	DisplayOrder    int       `json:"display_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Category *Category `json:"category,omitempty"`
}

// Modifiers are the optional user choices merged into the style prompt.
type Modifiers struct {
	Mood         string `json:"mood,omitempty"`
	Weather      string `json:"weather,omitempty"`
	DressStyle   string `json:"dress_style,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

// Creation records one successful generation. Rows are only written after the
// generated image is stored and the debit commits in the same transaction.
type Creation struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	StyleID        int64     `json:"style_id"`
	OriginalKey    string    `json:"original_key"`
	GeneratedKey   string    `json:"generated_key"`
	ThumbnailKey   string    `json:"thumbnail_key"`
	Modifiers      Modifiers `json:"modifiers"`
	PromptUsed     string    `json:"prompt_used"`
	CreditsUsed    int       `json:"credits_used"`
	ProcessingTime float64   `json:"processing_time"`
	LikesCount     int       `json:"likes_count"`
	ViewsCount     int       `json:"views_count"`
	IsPublic       bool      `json:"is_public"`
	IsFeatured     bool      `json:"is_featured"`
	IsDeleted      bool      `json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`

	Style *Style `json:"style,omitempty"`
}

type GuestUsage struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	StyleID   int64     `json:"style_id"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionKind string

const (
	TransactionGeneration      TransactionKind = "generation"
	TransactionAdminAdjustment TransactionKind = "admin_adjustment"
)

type CreditTransaction struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Amount       int             `json:"amount"`
	BalanceAfter int             `json:"balance_after"`
	Kind         TransactionKind `json:"kind"`
	CreationID   *int64          `json:"creation_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
