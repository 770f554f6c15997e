package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/dbtest"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/storage"
)

func (e *env) userService(t *testing.T) *UserService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	issuer := auth.NewIssuer("this-is-a-test-secret-with-32-bytes!", time.Minute, time.Hour)
	authSvc := NewAuthService(e.users, issuer, auth.NewRefreshStore(rdb), 100, nil)
	return NewUserService(e.users, repository.NewTransactionRepository(e.db), e.ledger, authSvc, nil)
}

func TestUserServiceAdjustCredits(t *testing.T) {
	e := newEnv(t)
	svc := e.userService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, SignupInput{Email: "ops@example.com", Password: "password1", Name: "Ops"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.Credits != 100 {
		t.Errorf("credits = %d, want 100", u.Credits)
	}

	balance, err := svc.AdjustCredits(ctx, u.ID, CreditAdjustment{Delta: -250, Reason: "chargeback"})
	if err != nil || balance != 0 {
		t.Fatalf("AdjustCredits() = %d, %v; want 0", balance, err)
	}
	_, err = svc.AdjustCredits(ctx, u.ID, CreditAdjustment{Delta: 0})
	wantCode(t, err, CodeValidation)
	_, err = svc.AdjustCredits(ctx, 9999, CreditAdjustment{Delta: 10})
	wantCode(t, err, CodeNotFound)

	txs, err := svc.Transactions(ctx, u.ID, repository.Page{})
	if err != nil || len(txs) != 1 {
		t.Fatalf("Transactions() = %v, %v", txs, err)
	}
	if txs[0].Amount != -100 || txs[0].BalanceAfter != 0 || txs[0].Kind != models.TransactionAdminAdjustment {
		t.Errorf("tx = %+v", txs[0])
	}

	page, err := svc.List(ctx, repository.UserFilter{Search: "ops"})
	if err != nil || page.Total != 1 || page.Page != 1 || page.Limit != 50 {
		t.Errorf("List() = %+v, %v", page, err)
	}

	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = svc.Get(ctx, u.ID)
	wantCode(t, err, CodeNotFound)
	wantCode(t, svc.Delete(ctx, u.ID), CodeNotFound)
}

func TestCreationHistoryAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := dbtest.InsertUser(t, e.db, "a@example.com", 200)
	other := dbtest.InsertUser(t, e.db, "b@example.com", 200)
	style := dbtest.InsertStyle(t, e.db, "anime", 50)

	gen := e.generation()
	var ids []int64
	for i := 0; i < 2; i++ {
		v, err := gen.Generate(ctx, GenerateInput{UserID: owner, StyleID: style.ID, Image: pngBytes, MIME: "image/png"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		ids = append(ids, v.ID)
	}

	svc := NewCreationService(e.creation, e.users, e.store, nil)
	mine, err := svc.Mine(ctx, owner, repository.Page{})
	if err != nil || len(mine) != 2 {
		t.Fatalf("Mine() = %d items, %v", len(mine), err)
	}
	if *mine[0].CreditsRemaining != 100 {
		t.Errorf("remaining = %d, want 100", *mine[0].CreditsRemaining)
	}

	wantCode(t, svc.Delete(ctx, other, ids[0]), CodeNotFound)
	if err := svc.Delete(ctx, owner, ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	mine, _ = svc.Mine(ctx, owner, repository.Page{})
	if len(mine) != 1 || mine[0].ID != ids[1] {
		t.Errorf("after delete = %+v", mine)
	}

	recent, err := svc.Recent(ctx, repository.Page{Limit: 10})
	if err != nil || len(recent) != 2 {
		t.Fatalf("Recent() = %+v, %v", recent, err)
	}
	deleted := map[int64]bool{}
	for _, v := range recent {
		if v.CreditsRemaining != nil {
			t.Errorf("Recent() item %d carries a balance", v.ID)
		}
		deleted[v.ID] = v.IsDeleted
	}
	if !deleted[ids[0]] || deleted[ids[1]] {
		t.Errorf("Recent() deleted flags = %v, want only %d deleted", deleted, ids[0])
	}
}

func TestSweepRemovesOnlyOldOrphans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := dbtest.InsertUser(t, e.db, "a@example.com", 200)
	style := dbtest.InsertStyle(t, e.db, "anime", 50)

	// A failed generation leaves its original behind.
	e.provider.err = context.DeadlineExceeded
	if _, err := e.generation().Generate(ctx, GenerateInput{UserID: owner, StyleID: style.ID, Image: pngBytes, MIME: "image/png"}); err == nil {
		t.Fatal("Generate() succeeded")
	}
	e.provider.err = nil
	ok, err := e.generation().Generate(ctx, GenerateInput{UserID: owner, StyleID: style.ID, Image: pngBytes, MIME: "image/png"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	for _, key := range e.store.Keys(storage.CreationsPrefix) {
		e.store.PutAt(key, pngBytes, "image/png", old)
	}
	e.store.Put(ctx, "creations/originals/9/fresh.png", pngBytes, "image/png")
	e.store.PutAt("styles/thumbnails/anime.png", pngBytes, "image/png", old)

	svc := NewSweepService(e.store, e.creation, 24*time.Hour, nil)

	dry, err := svc.Run(ctx, true)
	if err != nil {
		t.Fatalf("dry Run() error = %v", err)
	}
	if len(dry.Deleted) != 1 || dry.Referenced != 2 || dry.TooRecent != 1 || dry.Scanned != 4 {
		t.Errorf("dry report = %+v", dry)
	}
	if n := len(e.store.Keys(storage.CreationsPrefix)); n != 4 {
		t.Errorf("dry run deleted objects: %d left", n)
	}

	report, err := svc.Run(ctx, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Deleted) != 1 {
		t.Fatalf("report = %+v", report)
	}
	stored, _ := e.creation.GetByID(ctx, ok.ID)
	for _, key := range e.store.Keys(storage.CreationsPrefix) {
		if key == report.Deleted[0] {
			t.Errorf("orphan %s still stored", key)
		}
	}
	for _, key := range []string{stored.OriginalKey, stored.GeneratedKey} {
		if _, err := e.store.Get(ctx, key); err != nil {
			t.Errorf("referenced %s removed: %v", key, err)
		}
	}
	if _, err := e.store.Get(ctx, "styles/thumbnails/anime.png"); err != nil {
		t.Error("sweep touched objects outside creations/")
	}
}

func TestAnalyticsStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := dbtest.InsertUser(t, e.db, "a@example.com", 200)
	dbtest.InsertUser(t, e.db, "b@example.com", 0)
	style := dbtest.InsertStyle(t, e.db, "anime", 50)
	dbtest.InsertStyle(t, e.db, "oil", 50)

	if _, err := e.generation().Generate(ctx, GenerateInput{UserID: owner, StyleID: style.ID, Image: pngBytes, MIME: "image/png"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	guests := repository.NewGuestRepository(e.db)
	if err := e.ledger.CommitGuestTrial(ctx, "device", style.ID); err != nil {
		t.Fatal(err)
	}

	svc := NewAnalyticsService(e.users, e.styles, e.creation, guests)
	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Users.Total != 2 || st.Styles.Total != 2 || st.Styles.Active != 2 {
		t.Errorf("users/styles = %+v %+v", st.Users, st.Styles)
	}
	if st.Creations.Total != 1 || st.Creations.CreditsSpent != 50 || st.GuestTrials != 1 {
		t.Errorf("creations = %+v, guests = %d", st.Creations, st.GuestTrials)
	}
	if len(st.TopStyles) != 1 || st.TopStyles[0].StyleID != style.ID || st.TopStyles[0].Creations != 1 {
		t.Errorf("top styles = %+v", st.TopStyles)
	}
}

func TestSweepKeepsObjectsReferencedByLegacyURL(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := dbtest.InsertUser(t, e.db, "a@example.com", 200)
	style := dbtest.InsertStyle(t, e.db, "anime", 50)

	const key = "creations/generated/1/legacy.png"
	_, err := e.db.Exec(`INSERT INTO creations (user_id, style_id, original_key, generated_key, thumbnail_key, credits_used) VALUES (?, ?, ?, ?, ?, 50)`,
		owner, style.ID, "", "https://bucket.s3.us-east-1.amazonaws.com/"+key, "https://bucket.s3.us-east-1.amazonaws.com/"+key)
	if err != nil {
		t.Fatal(err)
	}
	e.store.PutAt(key, pngBytes, "image/png", time.Now().Add(-48*time.Hour))

	report, err := NewSweepService(e.store, e.creation, 24*time.Hour, nil).Run(ctx, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Deleted) != 0 || report.Referenced != 1 {
		t.Errorf("report = %+v, want the legacy object kept", report)
	}
	if _, err := e.store.Get(ctx, key); err != nil {
		t.Errorf("legacy object removed: %v", err)
	}
}
