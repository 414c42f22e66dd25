package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/portal"
	"github.com/yoockh/careerportal/internal/providers/captcha"
	"github.com/yoockh/careerportal/internal/repositories/static"
	"github.com/yoockh/careerportal/internal/services"
	"github.com/yoockh/careerportal/internal/utils"
)

const (
	pageTemplate = "page.html"
	pageTitle    = "Careers"
	errorAnchor  = "/#apply-error"
)

type PortalHandler struct {
	sessions *portal.Registry
	jobs     static.JobRepository
	lib      *captcha.Library
	log      *logrus.Logger
}

func NewPortalHandler(sessions *portal.Registry, jobs static.JobRepository, lib *captcha.Library, log *logrus.Logger) *PortalHandler {
	if log == nil {
		log = logrus.New()
	}
	return &PortalHandler{sessions: sessions, jobs: jobs, lib: lib, log: log}
}

type recaptchaData struct {
	Script    string
	SiteKey   string
	Onload    string
	Container string
	Loaded    bool
}

type pageData struct {
	Title     string
	View      string
	Error     string
	Jobs      []models.JobPosting
	Job       models.JobPosting
	Role      string
	Form      models.ApplicationForm
	Recaptcha recaptchaData
}

// Page renders whatever the session currently shows.
func (h *PortalHandler) Page(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, snap)
}

func (h *PortalHandler) SelectJob(c *gin.Context) {
	h.dispatch(c, portal.SelectJob{ID: c.Param("id")}, "/")
}

func (h *PortalHandler) Back(c *gin.Context) {
	h.dispatch(c, portal.Back{}, "/")
}

func (h *PortalHandler) Dismiss(c *gin.Context) {
	h.dispatch(c, portal.Dismiss{}, "/")
}

func (h *PortalHandler) SaveFields(c *gin.Context) {
	h.dispatch(c, portal.SetFields{Values: formValues(c)}, "/")
}

// AttachFile loads the upload named after the kind ("cv" or "video").
func (h *PortalHandler) AttachFile(c *gin.Context) {
	kind, ok := fileKind(c)
	if !ok {
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if snap, err := ctrl.Dispatch(ctx, portal.SetFields{Values: formValues(c)}); err != nil {
		h.respond(c, snap, err)
		return
	}

	fh, _ := c.FormFile(string(kind))
	a, lerr := services.LoadAttachment(fh, kind)
	snap, err := ctrl.Dispatch(ctx, portal.AttachFile{Kind: kind, File: a, Err: lerr})
	if err != nil {
		h.respond(c, snap, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PortalHandler) RemoveFile(c *gin.Context) {
	kind, ok := fileKind(c)
	if !ok {
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if snap, err := ctrl.Dispatch(ctx, portal.SetFields{Values: formValues(c)}); err != nil {
		h.respond(c, snap, err)
		return
	}
	snap, err := ctrl.Dispatch(ctx, portal.RemoveFile{Kind: kind})
	if err != nil {
		h.respond(c, snap, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Submit applies everything the apply form posted, then sends the
// application and waits for the outcome before redirecting.
func (h *PortalHandler) Submit(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if snap, err := ctrl.Dispatch(ctx, portal.SetFields{Values: formValues(c)}); err != nil {
		h.respond(c, snap, err)
		return
	}
	if snap, err := h.attachUploads(ctx, c, ctrl); err != nil {
		h.respond(c, snap, err)
		return
	}
	if token := c.PostForm("g-recaptcha-response"); token != "" {
		if _, err := ctrl.Deliver(ctx, captcha.OutcomeVerified, token); err != nil {
			// the form check below reports the missing token
			h.log.WithError(err).WithField("session_id", ctrl.ID()).Warn("posted captcha token not delivered")
		}
	}

	snap, err := ctrl.Dispatch(ctx, portal.Submit{})
	if err != nil {
		h.respond(c, snap, err)
		return
	}
	snap, err = ctrl.Await(ctx)
	if err != nil {
		// client went away; the submission settles on its own
		h.log.WithError(err).WithField("session_id", ctrl.ID()).Debug("stopped waiting for submission")
		return
	}

	if d, ok := snap.View.(portal.DetailApply); ok && d.Error != "" {
		c.Redirect(http.StatusSeeOther, errorAnchor)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// VerifierLoaded is posted by the library's onload callback.
func (h *PortalHandler) VerifierLoaded(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.lib.MarkLoaded()

	snap, err := ctrl.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusOf(snap))
}

// VerifierOutcome is posted by the widget callbacks.
func (h *PortalHandler) VerifierOutcome(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	outcome := captcha.Outcome(c.Param("outcome"))

	snap, err := ctrl.Deliver(c.Request.Context(), outcome, c.PostForm("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusOf(snap))
}

type verifierStatus struct {
	View   string `json:"view"`
	Error  string `json:"error,omitempty"`
	Loaded bool   `json:"loaded"`
}

func statusOf(snap portal.Snapshot) verifierStatus {
	st := verifierStatus{View: snap.View.Name(), Loaded: snap.VerifierLoaded}
	if d, ok := snap.View.(portal.DetailApply); ok {
		st.Error = d.Error
	}
	return st
}

func (h *PortalHandler) attachUploads(ctx context.Context, c *gin.Context, ctrl *portal.Controller) (portal.Snapshot, error) {
	var snap portal.Snapshot
	for _, kind := range []models.FileKind{models.FileKindCV, models.FileKindVideo} {
		fh, err := c.FormFile(string(kind))
		if err != nil {
			continue
		}
		a, lerr := services.LoadAttachment(fh, kind)
		snap, err = ctrl.Dispatch(ctx, portal.AttachFile{Kind: kind, File: a, Err: lerr})
		if err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (h *PortalHandler) dispatch(c *gin.Context, ev portal.Event, next string) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Dispatch(c.Request.Context(), ev)
	if err != nil {
		h.respond(c, snap, err)
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// respond maps a rejected event to a page. Errors the controller already
// shows in the apply form redirect back to it.
func (h *PortalHandler) respond(c *gin.Context, snap portal.Snapshot, err error) {
	var (
		fe *services.FieldError
		fr *services.FileRejectedError
	)
	switch {
	case errors.Is(err, portal.ErrSubmissionInFlight):
		h.render(c, http.StatusConflict, snap)
	case errors.As(err, &fe), errors.As(err, &fr):
		c.Redirect(http.StatusSeeOther, errorAnchor)
	case errors.Is(err, portal.ErrInvalidTransition), errors.Is(err, portal.ErrNoJobSelected):
		c.Redirect(http.StatusSeeOther, "/")
	default:
		if d, ok := snap.View.(portal.DetailApply); ok && d.Error != "" {
			c.Redirect(http.StatusSeeOther, errorAnchor)
			return
		}
		h.fail(c, err)
	}
}

func (h *PortalHandler) fail(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.HTML(status, pageTemplate, pageData{
		Title: pageTitle,
		View:  "error",
		Error: utils.Message(err, "Something went wrong. Please try again."),
	})
}

func (h *PortalHandler) render(c *gin.Context, status int, snap portal.Snapshot) {
	data := pageData{
		Title: pageTitle,
		View:  snap.View.Name(),
		Form:  snap.Form,
		Recaptcha: recaptchaData{
			Script:  h.lib.Script(),
			SiteKey: h.lib.SiteKey(),
			Onload:  h.lib.OnloadName(),
			Loaded:  snap.VerifierLoaded,
		},
	}

	switch v := snap.View.(type) {
	case portal.Listing:
		jobs, err := h.jobs.List(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		data.Jobs = jobs
	case portal.DetailApply:
		data.Job = v.Job
		data.Error = v.Error
		data.Title = v.Job.Title + " | " + pageTitle
		data.Recaptcha.Container = portal.ContainerFor(v.Job.ID)
	case portal.SubmittingInFlight:
		data.Job = v.Job
	case portal.Submitted:
		data.Role = v.Role
	}

	c.HTML(status, pageTemplate, data)
}

func (h *PortalHandler) controller(c *gin.Context) (*portal.Controller, bool) {
	id, ok := requireSessionID(c)
	if !ok {
		return nil, false
	}
	ctrl, err := h.sessions.Get(id)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "PortalHandler", "portal is shutting down", err))
		return nil, false
	}
	return ctrl, true
}

func fileKind(c *gin.Context) (models.FileKind, bool) {
	kind := models.FileKind(c.Param("kind"))
	if _, ok := services.FileRules[kind]; !ok {
		writeError(c, utils.E(utils.CodeNotFound, "PortalHandler", "unknown file kind", nil))
		return "", false
	}
	return kind, true
}

// formValues picks the application's text fields out of the posted form.
// Fields the form did not send are left untouched.
func formValues(c *gin.Context) map[string]string {
	out := make(map[string]string, len(models.TextFields))
	for _, name := range models.TextFields {
		if v, ok := c.GetPostForm(name); ok {
			out[name] = v
		}
	}
	return out
}

// RateLimited renders the rejection for a throttled submit.
func (h *PortalHandler) RateLimited(c *gin.Context) {
	h.fail(c, utils.E(utils.CodeRateLimited, "PortalHandler.Submit", "Too many attempts. Please wait a moment and try again.", nil))
}
