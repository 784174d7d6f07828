package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmca-notices/internal/application/notice"
	"github.com/dmca-notices/internal/domain"
	"github.com/dmca-notices/internal/pkg/validate"
	"github.com/dmca-notices/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	noticesPath    = "/v1/notices"
	createFormPath = "/v1/notices/create"

	fieldTemplate       = "template"
	fieldContentRemoved = "content_removed"
)

// NoticeHandler handles the DMCA notice workflow endpoints.
type NoticeHandler struct {
	svc notice.Service
}

func NewNoticeHandler(svc notice.Service) *NoticeHandler { return &NoticeHandler{svc: svc} }

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	req, ok := workflowRequest(w, r)
	if !ok {
		return
	}
	var filter domain.NoticeFilter
	if v := r.URL.Query().Get("exclude_removed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "exclude_removed must be a boolean")
			return
		}
		filter.ExcludeRemoved = b
	}
	listing, err := h.svc.List(r.Context(), req, filter)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoticesEnvelope{Notices: listing.Notices, Flash: listing.Flash})
}

func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := workflowRequest(w, r); !ok {
		return
	}
	providers, err := h.svc.CreateForm(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CreateFormEnvelope{Providers: providers})
}

func (h *NoticeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	req, ok := workflowRequest(w, r)
	if !ok {
		return
	}
	form, err := decodeForm(w, r)
	if err != nil {
		httpError(w, err)
		return
	}
	conf, err := h.svc.Confirm(r.Context(), req, form)
	var verr *validate.Errors
	if errors.As(err, &verr) {
		h.redisplay(w, r, verr)
		return
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmEnvelope{Template: conf.Template, Draft: conf.Draft})
}

// redisplay answers a failed confirm with the field errors and the provider
// list the create form needs.
func (h *NoticeHandler) redisplay(w http.ResponseWriter, r *http.Request, verr *validate.Errors) {
	providers, err := h.svc.CreateForm(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, ValidationEnvelope{
		Error:     "validation failed",
		Fields:    verr.Fields,
		Providers: providers,
	})
}

func (h *NoticeHandler) Store(w http.ResponseWriter, r *http.Request) {
	req, ok := workflowRequest(w, r)
	if !ok {
		return
	}
	form, err := decodeForm(w, r)
	if err != nil {
		httpError(w, err)
		return
	}
	_, err = h.svc.Store(r.Context(), req, form[fieldTemplate])
	if errors.Is(err, domain.ErrMissingDraft) {
		http.Redirect(w, r, createFormPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		httpError(w, err)
		return
	}
	http.Redirect(w, r, noticesPath, http.StatusSeeOther)
}

func (h *NoticeHandler) Show(w http.ResponseWriter, r *http.Request) {
	req, ok := workflowRequest(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Get(r.Context(), req, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := workflowRequest(w, r)
	if !ok {
		return
	}
	form, err := decodeForm(w, r)
	if err != nil {
		httpError(w, err)
		return
	}
	n, err := h.svc.Update(r.Context(), req, chi.URLParam(r, "id"), checked(form, fieldContentRemoved))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func workflowRequest(w http.ResponseWriter, r *http.Request) (notice.Request, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return notice.Request{}, false
	}
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return notice.Request{}, false
	}
	return notice.Request{User: u, Session: s}, true
}
