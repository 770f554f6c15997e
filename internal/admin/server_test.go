package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/dbtest"
	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/service"
	"github.com/digkill/magicpic/internal/storage/storagetest"
)

func newTestServer(t *testing.T) (*Server, *storagetest.Memory) {
	t.Helper()
	db := dbtest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := storagetest.NewMemory()
	users := repository.NewUserRepository(db)
	styles := repository.NewStyleRepository(db)
	creations := repository.NewCreationRepository(db)
	issuer := auth.NewIssuer("this-is-a-test-secret-with-32-bytes!", time.Minute, time.Hour)
	authSvc := service.NewAuthService(users, issuer, auth.NewRefreshStore(rdb), 500, nil)

	srv := NewServer(":0", "admin", "secret", nil,
		service.NewCatalogService(repository.NewCategoryRepository(db), styles, store, nil),
		service.NewUserService(users, repository.NewTransactionRepository(db), ledger.New(db), authSvc, nil),
		service.NewCreationService(creations, users, store, nil),
		service.NewAnalyticsService(users, styles, creations, repository.NewGuestRepository(db)),
	)
	return srv, store
}

func call(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBasicAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, creds := range [][2]string{{"", ""}, {"admin", "wrong"}, {"root", "secret"}} {
		req := httptest.NewRequest(http.MethodGet, "/styles/", nil)
		if creds[0] != "" {
			req.SetBasicAuth(creds[0], creds[1])
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("creds %v: status = %d", creds, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestCatalogManagement(t *testing.T) {
	srv, store := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/categories/", map[string]any{"name": "Retro Film"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category = %d %s", rec.Code, rec.Body)
	}
	var cat struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}
	json.NewDecoder(rec.Body).Decode(&cat)
	if cat.Slug != "retro-film" {
		t.Errorf("slug = %q", cat.Slug)
	}

	rec = call(t, srv, http.MethodPost, "/categories/", map[string]any{"name": "Retro Film"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate category = %d", rec.Code)
	}

	rec = call(t, srv, http.MethodPost, "/styles/", map[string]any{
		"category_id":     cat.ID,
		"name":            "Super 8",
		"prompt_template": "Make it look like super 8 film.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create style = %d %s", rec.Code, rec.Body)
	}
	var st struct {
		ID              int64  `json:"id"`
		Slug            string `json:"slug"`
		PromptTemplate  string `json:"prompt_template"`
		CreditsRequired int    `json:"credits_required"`
		PreviewURL      string `json:"preview_url"`
	}
	json.NewDecoder(rec.Body).Decode(&st)
	if st.Slug != "super-8" || st.PromptTemplate == "" || st.CreditsRequired != 50 {
		t.Errorf("style = %+v", st)
	}

	rec = call(t, srv, http.MethodPut, fmt.Sprintf("/styles/%d", st.ID), map[string]any{"credits_required": -1})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid update = %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="thumb.webp"`)
	hdr.Set("Content-Type", "image/webp")
	part, _ := mw.CreatePart(hdr)
	part.Write([]byte("RIFFwebp"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/styles/%d/thumbnail", st.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("thumbnail = %d %s", rec.Code, rec.Body)
	}
	if keys := store.Keys("styles/thumbnails/"); len(keys) != 1 || keys[0] != "styles/thumbnails/super-8.webp" {
		t.Errorf("stored = %v", keys)
	}

	rec = call(t, srv, http.MethodGet, "/styles/?search=super", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "https://signed.test/styles/thumbnails/super-8.webp") {
		t.Errorf("list styles = %d %s", rec.Code, rec.Body)
	}

	if rec = call(t, srv, http.MethodDelete, fmt.Sprintf("/styles/%d", st.ID), nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete style = %d", rec.Code)
	}
	if rec = call(t, srv, http.MethodGet, fmt.Sprintf("/styles/%d", st.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted style = %d", rec.Code)
	}
	if rec = call(t, srv, http.MethodDelete, "/categories/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d", rec.Code)
	}
}

func TestUserCredits(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/users/", map[string]string{"email": "u@example.com", "password": "password1", "name": "U"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d %s", rec.Code, rec.Body)
	}
	var user struct {
		ID      int64 `json:"id"`
		Credits int   `json:"credits"`
	}
	json.NewDecoder(rec.Body).Decode(&user)
	if user.Credits != 500 {
		t.Errorf("credits = %d", user.Credits)
	}

	rec = call(t, srv, http.MethodPost, fmt.Sprintf("/users/%d/credits", user.ID), map[string]any{"delta": 250, "reason": "promo"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"credits":750`) {
		t.Errorf("adjust = %d %s", rec.Code, rec.Body)
	}
	rec = call(t, srv, http.MethodPost, "/users/9999/credits", map[string]any{"delta": 5})
	if rec.Code != http.StatusNotFound {
		t.Errorf("adjust missing = %d", rec.Code)
	}

	rec = call(t, srv, http.MethodGet, fmt.Sprintf("/users/%d/transactions", user.ID), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"admin_adjustment"`) {
		t.Errorf("transactions = %d %s", rec.Code, rec.Body)
	}

	rec = call(t, srv, http.MethodGet, "/users/?search=u@example", nil)
	var page struct {
		Total int `json:"total"`
	}
	json.NewDecoder(rec.Body).Decode(&page)
	if page.Total != 1 {
		t.Errorf("total = %d", page.Total)
	}

	rec = call(t, srv, http.MethodGet, "/analytics/stats", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("stats = %d %s", rec.Code, rec.Body)
	}

	if rec = call(t, srv, http.MethodDelete, fmt.Sprintf("/users/%d", user.ID), nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec = call(t, srv, http.MethodGet, fmt.Sprintf("/users/%d", user.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d", rec.Code)
	}
}
