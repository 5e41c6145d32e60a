package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/views"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Base holds what every page handler needs to answer a request.
type Base struct {
	Sessions *session.Manager
	Views    *views.Renderer
	Logger   zerolog.Logger
}

// render drains the session's notices into the page and writes it with status.
func (b Base) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	s := session.FromContext(r.Context())
	page := views.Page{
		Title:   title,
		User:    s.UserName,
		IsAdmin: s.IsAdmin(),
		Flashes: s.PopFlashes(),
		Data:    data,
	}

	var buf bytes.Buffer
	if err := b.Views.Render(&buf, name, page); err != nil {
		b.Logger.Error().Err(err).Str("template", name).Msg("Template rendering failed")
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	if len(page.Flashes) > 0 {
		if err := b.Sessions.Save(w, s); err != nil {
			http.Error(w, "An internal error occurred", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// redirect queues an optional notice and sends the client to target.
func (b Base) redirect(w http.ResponseWriter, r *http.Request, target string, category session.Category, message string) {
	s := session.FromContext(r.Context())
	if message != "" {
		s.AddFlash(category, message)
	}
	if err := b.Sessions.Save(w, s); err != nil {
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (b Base) serverError(w http.ResponseWriter, r *http.Request, err error, message string) {
	b.Logger.Error().Err(err).
		Str("request_id", middleware.GetRequestID(r)).
		Str("path", r.URL.Path).
		Msg(message)
	b.render(w, r, http.StatusInternalServerError, "error.html", "Error", struct{ Message string }{message})
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseQuantity reads the "quantity" form field, defaulting to 1 when absent.
func parseQuantity(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.FormValue("quantity"))
	if raw == "" {
		return 1, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.ErrValidation
	}
	return q, nil
}

// backOr returns the same-host Referer path, or fallback.
func backOr(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func isStoreError(err error) bool {
	return err != nil && !errors.Is(err, services.ErrValidation) &&
		!errors.Is(err, services.ErrNotFound) && !errors.Is(err, services.ErrConflict)
}
