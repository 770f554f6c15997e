package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/digkill/magicpic/internal/dbtest"
	"github.com/digkill/magicpic/internal/models"
)

func TestUserRepositoryCreateAndFind(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		Email:          "Ann@Example.com ",
		HashedPassword: "hash",
		Name:           "Ann",
		Credits:        2500,
		ReferralCode:   "ABCD1234",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Email != "ann@example.com" {
		t.Errorf("Email = %q, want lower-cased", created.Email)
	}

	found, err := repo.FindByEmail(ctx, "ANN@example.com")
	if err != nil || found == nil {
		t.Fatalf("FindByEmail() = %v, %v", found, err)
	}
	if found.ID != created.ID || found.Credits != 2500 {
		t.Errorf("FindByEmail() = %+v", found)
	}

	_, err = repo.Create(ctx, &models.User{Email: "ann@example.com", HashedPassword: "h", Name: "Other", ReferralCode: "ZZZZ9999"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicate", err)
	}

	missing, err := repo.FindByID(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("FindByID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestUserRepositoryListSearch(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	dbtest.InsertUser(t, db, "alpha@example.com", 10)
	dbtest.InsertUser(t, db, "beta@example.com", 10)
	dbtest.InsertUser(t, db, "al_pha@example.com", 10)

	users, total, err := repo.List(ctx, UserFilter{Search: "alpha"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].Email != "alpha@example.com" {
		t.Errorf("List(alpha) = %d %v", total, users)
	}

	users, total, err = repo.List(ctx, UserFilter{Search: "_", Page: Page{Page: 1, Limit: 10}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || users[0].Email != "al_pha@example.com" {
		t.Errorf("underscore must match literally, got %d %v", total, users)
	}

	_, total, err = repo.List(ctx, UserFilter{Page: Page{Page: 2, Limit: 2}})
	if err != nil || total != 3 {
		t.Errorf("List(page 2) total = %d, err = %v", total, err)
	}
}

func TestStyleRepositoryListOrdering(t *testing.T) {
	db := dbtest.New(t)
	repo := NewStyleRepository(db)
	ctx := context.Background()

	a := dbtest.InsertStyle(t, db, "anime", 50)
	b := dbtest.InsertStyle(t, db, "ghibli", 50)
	c := dbtest.InsertStyle(t, db, "hidden", 50)
	if _, err := db.Exec(`UPDATE styles SET uses_count = 7, is_trending = 1 WHERE id = ?`, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE styles SET is_active = 0 WHERE id = ?`, c.ID); err != nil {
		t.Fatal(err)
	}

	styles, err := repo.List(ctx, StyleFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(styles) != 2 || styles[0].ID != b.ID || styles[1].ID != a.ID {
		t.Fatalf("List() order = %v, want ghibli then anime", styles)
	}
	if styles[0].Category == nil || styles[0].Category.Slug != "general" {
		t.Errorf("Category = %+v", styles[0].Category)
	}

	trending, err := repo.Trending(ctx, 10)
	if err != nil || len(trending) != 1 || trending[0].ID != b.ID {
		t.Errorf("Trending() = %v, %v", trending, err)
	}

	inactive, err := repo.GetActive(ctx, c.ID)
	if err != nil || inactive != nil {
		t.Errorf("GetActive(inactive) = %v, %v; want nil", inactive, err)
	}

	all, err := repo.List(ctx, StyleFilter{IncludeInactive: true, Search: "hid"})
	if err != nil || len(all) != 1 {
		t.Errorf("List(admin search) = %v, %v", all, err)
	}
}

func TestStyleRepositoryTagsRoundTrip(t *testing.T) {
	db := dbtest.New(t)
	categories := NewCategoryRepository(db)
	styles := NewStyleRepository(db)
	ctx := context.Background()

	cat, err := categories.Create(ctx, &models.Category{Name: "Art", Slug: "art", IsActive: true})
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}
	s, err := styles.Create(ctx, &models.Style{
		CategoryID:      cat.ID,
		Name:            "Oil",
		Slug:            "oil",
		PromptTemplate:  "Paint it.",
		Tags:            []string{"paint", "classic"},
		CreditsRequired: 60,
		IsActive:        true,
	})
	if err != nil {
		t.Fatalf("Create style: %v", err)
	}
	if len(s.Tags) != 2 || s.Tags[1] != "classic" {
		t.Errorf("Tags = %v", s.Tags)
	}

	counts, err := categories.ListWithCounts(ctx, true)
	if err != nil || len(counts) != 1 || counts[0].StylesCount != 1 {
		t.Errorf("ListWithCounts() = %v, %v", counts, err)
	}

	if err := styles.Delete(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCreationRepositorySoftDelete(t *testing.T) {
	db := dbtest.New(t)
	repo := NewCreationRepository(db)
	ctx := context.Background()

	user := dbtest.InsertUser(t, db, "u@example.com", 100)
	other := dbtest.InsertUser(t, db, "o@example.com", 100)
	style := dbtest.InsertStyle(t, db, "anime", 50)
	res, err := db.Exec(`INSERT INTO creations (user_id, style_id, original_key, generated_key, thumbnail_key, credits_used) VALUES (?, ?, 'o', 'g', 'g', 50)`, user, style.ID)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := res.LastInsertId()

	list, err := repo.ListByUser(ctx, user, Page{})
	if err != nil || len(list) != 1 || list[0].Style == nil || list[0].Style.Category == nil {
		t.Fatalf("ListByUser() = %v, %v", list, err)
	}

	if ok, err := repo.IsKeyReferenced(ctx, "g"); err != nil || !ok {
		t.Errorf("IsKeyReferenced(g) = %v, %v", ok, err)
	}
	if ok, err := repo.IsKeyReferenced(ctx, "nope"); err != nil || ok {
		t.Errorf("IsKeyReferenced(nope) = %v, %v", ok, err)
	}

	if err := repo.SoftDelete(ctx, id, other); !errors.Is(err, ErrNotFound) {
		t.Errorf("SoftDelete(other user) error = %v, want ErrNotFound", err)
	}
	if err := repo.SoftDelete(ctx, id, user); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	list, err = repo.ListByUser(ctx, user, Page{})
	if err != nil || len(list) != 0 {
		t.Errorf("ListByUser() after delete = %v, %v", list, err)
	}
	if err := repo.SoftDelete(ctx, id, user); !errors.Is(err, ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want ErrNotFound", err)
	}
}

func TestCreationRepositoryKeyReferencedByLegacyURL(t *testing.T) {
	db := dbtest.New(t)
	repo := NewCreationRepository(db)
	ctx := context.Background()

	user := dbtest.InsertUser(t, db, "u@example.com", 100)
	style := dbtest.InsertStyle(t, db, "anime", 50)
	_, err := db.Exec(`INSERT INTO creations (user_id, style_id, original_key, generated_key, thumbnail_key, credits_used) VALUES (?, ?, ?, ?, ?, 50)`,
		user, style.ID,
		"https://s3.us-east-1.amazonaws.com/bucket/creations/originals/1/a_b.png",
		"https://bucket.s3.us-east-1.amazonaws.com/creations/generated/1/legacy.png",
		"https://bucket.s3.amazonaws.com/creations/generated/1/thumb.png?X-Amz-Expires=3600")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"creations/generated/1/legacy.png", true},
		{"creations/originals/1/a_b.png", true},
		{"creations/generated/1/thumb.png", true},
		{"creations/originals/1/a%b.png", false},
		{"generated/1/legacy.pn", false},
		{"creations/generated/1/other.png", false},
	}
	for _, tt := range tests {
		got, err := repo.IsKeyReferenced(ctx, tt.key)
		if err != nil {
			t.Fatalf("IsKeyReferenced(%q) error = %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("IsKeyReferenced(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
