package captcha

import (
	"net/url"
	"sync"
)

type libraryState int

const (
	stateIdle libraryState = iota
	stateInjected
	stateLoaded
)

// Library is the process-wide reCAPTCHA script. It is injected at most once
// and torn down only if every holder leaves before it finished loading.
type Library struct {
	siteKey   string
	scriptURL string
	onload    string

	mu         sync.Mutex
	state      libraryState
	injections int
	holders    int
	nextSub    int
	subs       map[int]func()
}

func NewLibrary(siteKey, scriptURL, onload string) *Library {
	if onload == "" {
		onload = "onRecaptchaLoad"
	}
	return &Library{
		siteKey:   siteKey,
		scriptURL: scriptURL,
		onload:    onload,
		subs:      map[int]func(){},
	}
}

func (l *Library) SiteKey() string    { return l.siteKey }
func (l *Library) OnloadName() string { return l.onload }

// EnsureLoaded injects the script on first use and reports whether the
// library is ready.
func (l *Library) EnsureLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateIdle {
		l.state = stateInjected
		l.injections++
	}
	return l.state == stateLoaded
}

// MarkLoaded is the onload signal. Subscribers run once, outside the lock.
// A signal for a script that was never injected, or already torn down, is
// ignored.
func (l *Library) MarkLoaded() {
	l.mu.Lock()
	if l.state != stateInjected {
		l.mu.Unlock()
		return
	}
	l.state = stateLoaded
	fns := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subs = map[int]func(){}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (l *Library) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateLoaded
}

// Injections counts how many times the script was injected.
func (l *Library) Injections() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.injections
}

// Script is the tag source while the script is injected, or "".
func (l *Library) Script() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateIdle || l.scriptURL == "" {
		return ""
	}
	u, err := url.Parse(l.scriptURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("onload", l.onload)
	q.Set("render", "explicit")
	u.RawQuery = q.Encode()
	return u.String()
}

func (l *Library) onLoad(fn func()) (cancel func()) {
	l.mu.Lock()
	if l.state == stateLoaded {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Library) acquire() {
	l.mu.Lock()
	l.holders++
	l.mu.Unlock()
}

func (l *Library) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holders > 0 {
		l.holders--
	}
	if l.holders == 0 && l.state == stateInjected {
		// nobody is waiting: drop the script and the onload hook
		l.state = stateIdle
		l.subs = map[int]func(){}
	}
}

type widget struct {
	id        WidgetID
	container string
	cb        Callbacks
	resets    int
}

// WidgetInfo describes a rendered widget for the page.
type WidgetInfo struct {
	ID        WidgetID
	Container string
	Resets    int
}

// Widgets is the per-session Provider backed by a shared Library.
type Widgets struct {
	lib *Library

	mu          sync.Mutex
	closed      bool
	holding     bool
	next        WidgetID
	byContainer map[string]*widget
	byID        map[WidgetID]*widget
	cancels     []func()

	// RenderHook, when set, runs before a widget is bound; an error aborts
	// the render.
	RenderHook func(container string) error
}

func NewWidgets(lib *Library) *Widgets {
	return &Widgets{
		lib:         lib,
		byContainer: map[string]*widget{},
		byID:        map[WidgetID]*widget{},
	}
}

func (w *Widgets) Library() *Library { return w.lib }

func (w *Widgets) EnsureLoaded() bool {
	w.mu.Lock()
	if !w.closed && !w.holding {
		w.holding = true
		w.lib.acquire()
	}
	w.mu.Unlock()
	return w.lib.EnsureLoaded()
}

func (w *Widgets) OnLoad(fn func()) {
	cancel := w.lib.onLoad(fn)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		cancel()
		return
	}
	w.cancels = append(w.cancels, cancel)
}

func (w *Widgets) Render(container string, cb Callbacks) (WidgetID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if existing, ok := w.byContainer[container]; ok {
		return existing.id, nil
	}
	if !w.lib.Loaded() {
		return 0, ErrNotLoaded
	}
	if w.RenderHook != nil {
		if err := w.RenderHook(container); err != nil {
			return 0, err
		}
	}

	wd := &widget{id: w.next, container: container, cb: cb}
	w.next++
	w.byContainer[container] = wd
	w.byID[wd.id] = wd
	return wd.id, nil
}

// Reset records a reset of the bound widget; the browser re-renders it on the
// next page load. The token itself lives in the caller's form, which must
// clear it. Unknown ids are a no-op.
func (w *Widgets) Reset(id WidgetID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if wd, ok := w.byID[id]; ok {
		wd.resets++
	}
	return nil
}

func (w *Widgets) Release(container string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if wd, ok := w.byContainer[container]; ok {
		delete(w.byContainer, container)
		delete(w.byID, wd.id)
	}
}

// Widget reports what is bound to container.
func (w *Widgets) Widget(container string) (WidgetInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wd, ok := w.byContainer[container]
	if !ok {
		return WidgetInfo{}, false
	}
	return WidgetInfo{ID: wd.id, Container: wd.container, Resets: wd.resets}, true
}

// Deliver hands a browser-side outcome to the widget's callbacks.
func (w *Widgets) Deliver(container string, outcome Outcome, token string) error {
	w.mu.Lock()
	wd, ok := w.byContainer[container]
	w.mu.Unlock()
	if !ok {
		return ErrUnknownWidget
	}

	switch outcome {
	case OutcomeVerified:
		if token == "" {
			return ErrEmptyToken
		}
		if wd.cb.OnVerified != nil {
			wd.cb.OnVerified(token)
		}
	case OutcomeExpired:
		if wd.cb.OnExpired != nil {
			wd.cb.OnExpired()
		}
	case OutcomeError:
		if wd.cb.OnError != nil {
			wd.cb.OnError()
		}
	default:
		return ErrUnknownOutcome
	}
	return nil
}

func (w *Widgets) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	cancels := w.cancels
	w.cancels = nil
	holding := w.holding
	w.byContainer = map[string]*widget{}
	w.byID = map[WidgetID]*widget{}
	w.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if holding {
		w.lib.release()
	}
	return nil
}

var (
	_ Provider  = (*Widgets)(nil)
	_ Deliverer = (*Widgets)(nil)
)
