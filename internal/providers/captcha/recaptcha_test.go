package captcha

import (
	"errors"
	"strings"
	"testing"
)

const testScriptURL = "https://www.google.com/recaptcha/api.js"

func TestEnsureLoadedInjectsOnce(t *testing.T) {
	lib := NewLibrary("site-key", testScriptURL, "")
	w := NewWidgets(lib)

	if w.EnsureLoaded() {
		t.Fatal("library reported loaded before onload fired")
	}
	if w.EnsureLoaded() {
		t.Fatal("library reported loaded before onload fired")
	}
	NewWidgets(lib).EnsureLoaded()

	if got := lib.Injections(); got != 1 {
		t.Fatalf("expected one injection, got %d", got)
	}
	src := lib.Script()
	if !strings.HasPrefix(src, testScriptURL+"?") || !strings.Contains(src, "onload=onRecaptchaLoad") || !strings.Contains(src, "render=explicit") {
		t.Fatalf("unexpected script src %q", src)
	}
}

func TestOnLoadFiresOnceAfterMarkLoaded(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "cb")
	w := NewWidgets(lib)
	w.EnsureLoaded()

	calls := 0
	w.OnLoad(func() { calls++ })
	lib.MarkLoaded()
	lib.MarkLoaded()

	if calls != 1 {
		t.Fatalf("expected one onload call, got %d", calls)
	}
	if !w.EnsureLoaded() {
		t.Fatal("expected loaded")
	}

	late := 0
	w.OnLoad(func() { late++ })
	if late != 1 {
		t.Fatal("expected immediate call once loaded")
	}
}

func TestRenderIsOncePerContainer(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	w := NewWidgets(lib)
	w.EnsureLoaded()

	if _, err := w.Render("a", Callbacks{}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	lib.MarkLoaded()

	first, err := w.Render("a", Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	again, err := w.Render("a", Callbacks{})
	if err != nil || again != first {
		t.Fatalf("expected same widget %d, got %d (%v)", first, again, err)
	}
	other, _ := w.Render("b", Callbacks{})
	if other == first {
		t.Fatal("expected a distinct widget for another container")
	}

	w.Release("a")
	fresh, _ := w.Render("a", Callbacks{})
	if fresh == first {
		t.Fatal("expected a fresh widget after release")
	}
}

func TestRenderHookFailure(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	lib.EnsureLoaded()
	lib.MarkLoaded()
	w := NewWidgets(lib)
	boom := errors.New("boom")
	w.RenderHook = func(string) error { return boom }

	if _, err := w.Render("a", Callbacks{}); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if _, ok := w.Widget("a"); ok {
		t.Fatal("failed render must not bind a widget")
	}
}

func TestResetUnknownWidgetIsNoop(t *testing.T) {
	w := NewWidgets(NewLibrary("k", testScriptURL, ""))
	if err := w.Reset(42); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestResetCountsOnBoundWidget(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	lib.EnsureLoaded()
	lib.MarkLoaded()
	w := NewWidgets(lib)
	id, _ := w.Render("a", Callbacks{})

	_ = w.Reset(id)
	_ = w.Reset(id)
	info, ok := w.Widget("a")
	if !ok || info.Resets != 2 || info.ID != id {
		t.Fatalf("unexpected widget info %+v", info)
	}
}

func TestDeliverRoutesOutcomes(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	lib.EnsureLoaded()
	lib.MarkLoaded()
	w := NewWidgets(lib)

	var got []string
	_, _ = w.Render("a", Callbacks{
		OnVerified: func(tok string) { got = append(got, "verified:"+tok) },
		OnExpired:  func() { got = append(got, "expired") },
		OnError:    func() { got = append(got, "error") },
	})

	steps := []struct {
		outcome Outcome
		token   string
		err     error
	}{
		{OutcomeVerified, "tok", nil},
		{OutcomeVerified, "", ErrEmptyToken},
		{OutcomeExpired, "", nil},
		{OutcomeError, "", nil},
		{Outcome("weird"), "", ErrUnknownOutcome},
	}
	for _, s := range steps {
		if err := w.Deliver("a", s.outcome, s.token); !errors.Is(err, s.err) {
			t.Fatalf("%s: expected %v, got %v", s.outcome, s.err, err)
		}
	}
	if err := w.Deliver("missing", OutcomeExpired, ""); !errors.Is(err, ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget, got %v", err)
	}

	want := "verified:tok,expired,error"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %v", want, got)
	}
}

func TestCloseBeforeLoadTearsDownScript(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	a := NewWidgets(lib)
	b := NewWidgets(lib)
	a.EnsureLoaded()
	b.EnsureLoaded()

	fired := false
	a.OnLoad(func() { fired = true })

	_ = a.Close()
	if lib.Script() == "" {
		t.Fatal("script removed while another session still waits")
	}
	_ = b.Close()
	if lib.Script() != "" {
		t.Fatal("expected script removed once no session waits")
	}

	lib.MarkLoaded()
	if fired {
		t.Fatal("onload hook of a closed session fired")
	}

	NewWidgets(lib).EnsureLoaded()
	if got := lib.Injections(); got != 2 {
		t.Fatalf("expected re-injection after teardown, got %d", got)
	}
}

func TestCloseAfterLoadKeepsLibrary(t *testing.T) {
	lib := NewLibrary("k", testScriptURL, "")
	w := NewWidgets(lib)
	w.EnsureLoaded()
	lib.MarkLoaded()

	_ = w.Close()
	if !lib.Loaded() || lib.Script() == "" {
		t.Fatal("loaded library must survive session teardown")
	}
	if _, err := w.Render("a", Callbacks{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
