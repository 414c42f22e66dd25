package portal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/providers/captcha"
	"github.com/yoockh/careerportal/internal/repositories/static"
	"github.com/yoockh/careerportal/internal/services"
	"github.com/yoockh/careerportal/internal/utils"
)

const (
	MsgVerifierExpired = "reCAPTCHA expired. Please verify again."
	MsgVerifierError   = "reCAPTCHA error. Please refresh the page and try again."
)

var (
	ErrSubmissionInFlight = utils.E(utils.CodeConflict, "Controller", "an application is already being submitted", nil)
	ErrNoJobSelected      = utils.E(utils.CodeInvalidArgument, "Controller", "no job selected", nil)
	ErrUnknownJob         = utils.E(utils.CodeNotFound, "Controller", "job not found", nil)
	ErrInvalidTransition  = utils.E(utils.CodeConflict, "Controller", "action not available on this screen", nil)
	ErrClosed             = errors.New("controller closed")
)

type Deps struct {
	Jobs      static.JobRepository
	Verifier  captcha.Provider
	Submitter services.SubmissionService
	Logger    *logrus.Logger
	Now       func() time.Time
}

type envelope struct {
	ev    Event
	reply chan result
}

type result struct {
	snap Snapshot
	err  error
}

// Controller owns one session's view and form. All state lives on the loop
// goroutine; callers talk to it through Dispatch.
type Controller struct {
	id        string
	jobs      static.JobRepository
	verifier  captcha.Provider
	submitter services.SubmissionService
	log       *logrus.Entry
	now       func() time.Time

	events    chan envelope
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	busy      atomic.Bool

	// loop-owned
	view     View
	form     *models.ApplicationForm
	loaded   bool
	widget   *Widget
	inflight chan struct{}
}

func NewController(id string, d Deps) *Controller {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	c := &Controller{
		id:        id,
		jobs:      d.Jobs,
		verifier:  d.Verifier,
		submitter: d.Submitter,
		log:       d.Logger.WithField("session_id", id),
		now:       d.Now,
		events:    make(chan envelope, 16),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		view:      Listing{},
	}

	if c.verifier != nil {
		if c.verifier.EnsureLoaded() {
			c.loaded = true
		} else {
			c.verifier.OnLoad(func() { c.post(VerifierLoaded{}) })
		}
	}

	go c.run()
	return c
}

func (c *Controller) ID() string { return c.id }

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// Dispatch hands ev to the loop and waits for the resulting snapshot.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (Snapshot, error) {
	reply := make(chan result, 1)
	select {
	case c.events <- envelope{ev: ev, reply: reply}:
	case <-c.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.snap, r.err
	case <-c.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot is Dispatch(ctx, Refresh{}).
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.Dispatch(ctx, Refresh{})
}

// Await blocks until no submission is in flight and returns the settled state.
func (c *Controller) Await(ctx context.Context) (Snapshot, error) {
	for {
		snap, err := c.Snapshot(ctx)
		if err != nil || snap.Pending == nil {
			return snap, err
		}
		select {
		case <-snap.Pending:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Close stops the loop and releases the verifier. Safe to call twice.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.stopped
	return nil
}

// Deliver forwards a browser-side verifier outcome to the widget bound on
// the current form. The widget's callbacks feed the loop, so the returned
// snapshot already reflects the outcome.
func (c *Controller) Deliver(ctx context.Context, outcome captcha.Outcome, token string) (Snapshot, error) {
	const op = "Controller.Deliver"

	snap, err := c.Snapshot(ctx)
	if err != nil {
		return snap, err
	}
	d, ok := c.verifier.(captcha.Deliverer)
	if !ok || snap.Widget == nil {
		return snap, utils.E(utils.CodeConflict, op, "no verification widget on this screen", captcha.ErrUnknownWidget)
	}
	if err := d.Deliver(snap.Widget.Container, outcome, token); err != nil {
		switch {
		case errors.Is(err, captcha.ErrUnknownWidget):
			return snap, utils.E(utils.CodeConflict, op, "no verification widget on this screen", err)
		default:
			return snap, utils.E(utils.CodeInvalidArgument, op, "invalid verification outcome", err)
		}
	}
	return c.Snapshot(ctx)
}

func (c *Controller) post(ev Event) {
	select {
	case c.events <- envelope{ev: ev}:
	case <-c.done:
	}
}

func (c *Controller) run() {
	defer close(c.stopped)
	defer func() {
		if c.verifier != nil {
			_ = c.verifier.Close()
		}
	}()

	for {
		select {
		case <-c.done:
			return
		case env := <-c.events:
			err := c.handle(env.ev)
			if env.reply != nil {
				env.reply <- result{snap: c.snapshot(), err: err}
			}
		}
	}
}

func (c *Controller) handle(ev Event) error {
	if _, ok := c.view.(SubmittingInFlight); ok {
		switch ev.(type) {
		case Refresh, VerifierLoaded, submissionResolved:
		default:
			return ErrSubmissionInFlight
		}
	}

	switch e := ev.(type) {
	case Refresh:
		return nil
	case SelectJob:
		return c.selectJob(e.ID)
	case Back:
		return c.back()
	case Dismiss:
		return c.dismiss()
	case SetFields:
		return c.setFields(e.Values)
	case AttachFile:
		return c.attach(e)
	case RemoveFile:
		if c.form == nil {
			return ErrNoJobSelected
		}
		c.form.Remove(e.Kind)
		return nil
	case VerifierLoaded:
		c.loaded = true
		c.renderWidget()
		return nil
	case TokenVerified:
		if c.form == nil {
			return nil
		}
		c.form.VerificationToken = e.Token
		c.setError("")
		return nil
	case TokenExpired:
		if c.form == nil {
			return nil
		}
		c.form.VerificationToken = ""
		c.setError(MsgVerifierExpired)
		return nil
	case VerifierFailed:
		if c.form == nil {
			return nil
		}
		c.form.VerificationToken = ""
		c.setError(MsgVerifierError)
		return nil
	case Submit:
		return c.submit()
	case submissionResolved:
		c.resolve(e.err)
		return nil
	}
	return utils.E(utils.CodeInvalidArgument, "Controller.handle", "unknown event", nil)
}

func (c *Controller) selectJob(id string) error {
	const op = "Controller.SelectJob"

	switch c.view.(type) {
	case Listing, DetailApply:
	default:
		return ErrInvalidTransition
	}

	job, err := c.jobs.GetByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return ErrUnknownJob
		}
		return utils.E(utils.CodeInternal, op, "failed to load job", err)
	}

	if d, ok := c.view.(DetailApply); ok && d.Job.ID == job.ID {
		return nil
	}
	c.discardApplication()

	form := models.NewApplicationForm()
	c.form = &form
	c.view = DetailApply{Job: *job}
	c.renderWidget()

	c.log.WithField("job_id", job.ID).Debug("job selected")
	return nil
}

func (c *Controller) back() error {
	switch c.view.(type) {
	case Listing:
		return nil
	case DetailApply:
		c.discardApplication()
		c.view = Listing{}
		return nil
	}
	return ErrInvalidTransition
}

func (c *Controller) dismiss() error {
	switch c.view.(type) {
	case Listing:
		return nil
	case Submitted:
		c.view = Listing{}
		return nil
	}
	return ErrInvalidTransition
}

func (c *Controller) setFields(values map[string]string) error {
	if c.form == nil {
		return ErrNoJobSelected
	}
	for _, name := range models.TextFields {
		v, ok := values[name]
		if !ok {
			continue
		}
		if !c.form.Set(name, v) {
			c.log.WithField("field", name).Debug("ignored field value")
		}
	}
	return nil
}

func (c *Controller) attach(e AttachFile) error {
	if c.form == nil {
		return ErrNoJobSelected
	}
	err := e.Err
	if err == nil {
		err = services.ValidateFile(e.File, e.Kind)
	}
	if err != nil {
		var fr *services.FileRejectedError
		if errors.As(err, &fr) {
			c.setError(fr.Message)
		} else {
			c.setError(utils.Message(err, "Failed to read the selected file"))
		}
		return err
	}
	c.form.Attach(e.Kind, e.File)
	c.setError("")
	return nil
}

func (c *Controller) submit() error {
	d, ok := c.view.(DetailApply)
	if !ok || c.form == nil {
		return ErrNoJobSelected
	}
	c.setError("")

	if err := services.ValidateApplication(*c.form); err != nil {
		c.setError(err.Error())
		return err
	}

	app := models.Application{
		Form:        *c.form,
		Job:         d.Job,
		SubmittedAt: c.now(),
	}
	c.view = SubmittingInFlight{Job: d.Job}
	c.inflight = make(chan struct{})
	c.busy.Store(true)

	// no deadline: the request ends on a response or a transport error
	go func() {
		err := c.submitter.Submit(context.Background(), app)
		c.post(submissionResolved{err: err})
	}()
	return nil
}

func (c *Controller) resolve(err error) {
	s, ok := c.view.(SubmittingInFlight)
	if !ok {
		return
	}
	defer func() {
		close(c.inflight)
		c.inflight = nil
		c.busy.Store(false)
	}()

	log := c.log.WithField("job_id", s.Job.ID)

	if err == nil {
		c.discardApplication()
		c.view = Submitted{Role: s.Job.Title}
		log.Info("application accepted")
		return
	}

	msg := services.MsgNetworkFailure
	var se *services.SubmissionError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	log.WithError(err).Warn("application rejected")

	c.view = DetailApply{Job: s.Job, Error: msg}
	if c.form != nil {
		c.form.VerificationToken = ""
	}
	c.resetWidget()
}

// discardApplication drops the form and unbinds the widget so the next job
// starts from initial values.
func (c *Controller) discardApplication() {
	c.resetWidget()
	if c.widget != nil && c.verifier != nil {
		c.verifier.Release(c.widget.Container)
	}
	c.widget = nil
	c.form = nil
}

func (c *Controller) resetWidget() {
	if c.widget == nil || c.verifier == nil {
		return
	}
	if err := c.verifier.Reset(c.widget.ID); err != nil {
		c.log.WithError(err).Error("captcha reset failed")
	}
}

func (c *Controller) renderWidget() {
	d, ok := c.view.(DetailApply)
	if !ok || !c.loaded || c.widget != nil || c.verifier == nil {
		return
	}
	container := ContainerFor(d.Job.ID)
	id, err := c.verifier.Render(container, captcha.Callbacks{
		OnVerified: func(token string) { c.post(TokenVerified{Token: token}) },
		OnExpired:  func() { c.post(TokenExpired{}) },
		OnError:    func() { c.post(VerifierFailed{}) },
	})
	if err != nil {
		c.log.WithError(err).WithField("container", container).Error("captcha render failed")
		return
	}
	c.widget = &Widget{ID: id, Container: container}
}

func (c *Controller) setError(msg string) {
	if d, ok := c.view.(DetailApply); ok {
		d.Error = msg
		c.view = d
	}
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		SessionID:      c.id,
		View:           c.view,
		Form:           models.NewApplicationForm(),
		VerifierLoaded: c.loaded,
	}
	if c.form != nil {
		s.Form = *c.form
		s.Form.CV = metaOnly(c.form.CV)
		s.Form.Video = metaOnly(c.form.Video)
	}
	if c.widget != nil {
		w := *c.widget
		s.Widget = &w
	}
	if c.inflight != nil {
		s.Pending = c.inflight
	}
	return s
}

func metaOnly(a *models.Attachment) *models.Attachment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Data = nil
	return &cp
}

// ContainerFor names the widget container of a job's apply form.
func ContainerFor(jobID string) string { return "recaptcha-" + jobID }
