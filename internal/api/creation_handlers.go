package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/service"
)

// Multipart framing on top of the image itself.
const maxUploadBody = service.MaxImageBytes + 1<<20

type upload struct {
	data []byte
	mime string
}

// readUpload parses the multipart body and returns the image part. The size
// check itself is left to service validation so the error code stays uniform.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if err := parseUploadForm(w, r); err != nil {
		return nil, err
	}
	return formImage(r)
}

func parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &service.Error{Code: service.CodeImageTooLarge, Message: "Image must be under 10 MB."}
		}
		return &service.Error{Code: service.CodeValidation, Message: "multipart form required", Err: err}
	}
	return nil
}

func formImage(r *http.Request) (*upload, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, &service.Error{Code: service.CodeValidation, Message: "image is required", Err: err}
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		return nil, &service.Error{Code: service.CodeInvalidImage, Message: "could not read image", Err: err}
	}
	return &upload{data: data, mime: partMIME(header)}, nil
}

func partMIME(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func formStyleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("style_id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.Error{Code: service.CodeValidation, Message: "style_id must be a positive integer"}
	}
	return id, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	up, err := readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	styleID, err := formStyleID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	isPublic := true
	if raw := r.FormValue("is_public"); raw != "" {
		if isPublic, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, r, &service.Error{Code: service.CodeValidation, Message: "is_public must be true or false"})
			return
		}
	}

	view, err := s.deps.Generation.Generate(r.Context(), service.GenerateInput{
		UserID:  id.UserID,
		StyleID: styleID,
		Image:   up.data,
		MIME:    up.mime,
		Modifiers: models.Modifiers{
			Mood:         r.FormValue("mood"),
			Weather:      r.FormValue("weather"),
			DressStyle:   r.FormValue("dress_style"),
			CustomPrompt: r.FormValue("custom_prompt"),
		},
		IsPublic: isPublic,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, view, "Image transformed successfully")
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	views, err := s.deps.Creations.Mine(r.Context(), id.UserID, pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, views, "")
}

func (s *Server) handleDeleteCreation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	creationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, service.CodeValidation, "invalid id")
		return
	}
	if err := s.deps.Creations.Delete(r.Context(), id.UserID, creationID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil, "Creation deleted")
}

// handleGuestGenerate leaves image and style_id problems to the service, which
// checks the device first. A missing image arrives as an empty upload and a
// malformed style_id as zero.
func (s *Server) handleGuestGenerate(w http.ResponseWriter, r *http.Request) {
	if err := parseUploadForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	up, err := formImage(r)
	if err != nil {
		up = &upload{}
	}
	styleID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("style_id")), 10, 64)
	img, err := s.deps.Guest.Generate(r.Context(), service.GuestInput{
		DeviceID: r.FormValue("device_id"),
		StyleID:  styleID,
		Image:    up.data,
		MIME:     up.mime,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func pageFrom(r *http.Request) repository.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return repository.Page{Page: page, Limit: limit}
}
