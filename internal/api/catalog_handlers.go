package api

import (
	"net/http"
	"strconv"

	"github.com/digkill/magicpic/internal/service"
)

func (s *Server) handleListStyles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.StyleQuery{
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
	}
	if raw := q.Get("trending"); raw != "" {
		trending, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, service.CodeValidation, "trending must be true or false")
			return
		}
		query.Trending = &trending
	}
	styles, err := s.deps.Catalog.ListStyles(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, styles, "")
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	styles, err := s.deps.Catalog.Trending(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, styles, "")
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Catalog.Categories(r.Context(), true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, cats, "")
}
