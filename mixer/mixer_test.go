package mixer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSession struct {
	scene    string
	scenes   []string
	failWith error
	calls    int
	closed   bool
}

func (s *fakeSession) CurrentScene(context.Context) (string, error) {
	s.calls++
	return s.scene, s.failWith
}

func (s *fakeSession) Scenes(context.Context) ([]string, error) {
	s.calls++
	return s.scenes, s.failWith
}

func (s *fakeSession) SetScene(_ context.Context, name string) error {
	s.calls++
	if s.failWith != nil {
		return s.failWith
	}
	s.scene = name
	return nil
}

func (s *fakeSession) SetSourceVisible(context.Context, string, string, bool) error {
	s.calls++
	return s.failWith
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func dialerFor(s *fakeSession, err error) Dialer {
	return func(context.Context) (Session, error) {
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newFallbackServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	hits := new(int)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/obs/program-scene", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/obs/scenes", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scenes":["Main","BRB"],"currentProgramSceneName":"Main"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestConnectDirect(t *testing.T) {
	sess := &fakeSession{scene: "Main"}
	f := New(dialerFor(sess, nil), nil, nil)

	st := f.Connect(context.Background())
	if st.Mode != ModeDirect || !st.ConnectedDirect {
		t.Fatalf("status = %+v, want direct", st)
	}
	if err := f.SetScene(context.Background(), "BRB"); err != nil {
		t.Fatal(err)
	}
	if sess.scene != "BRB" {
		t.Errorf("scene = %q", sess.scene)
	}
}

func TestConnectFailureSettlesOnFallback(t *testing.T) {
	srv, _ := newFallbackServer(t)
	f := New(dialerFor(nil, errors.New("refused")), NewFallbackClient(srv.URL), nil)

	st := f.Connect(context.Background())
	if st.Mode != ModeFallback {
		t.Fatalf("mode = %q, want fallback", st.Mode)
	}
	if st.ConnectedDirect {
		t.Error("ConnectedDirect true without a session")
	}
	if st.LastError == "" {
		t.Error("dial failure not recorded")
	}
}

func TestConnectFailureWithoutFallback(t *testing.T) {
	f := New(dialerFor(nil, errors.New("refused")), nil, nil)
	st := f.Connect(context.Background())
	if st.Mode != ModeDisconnected {
		t.Fatalf("mode = %q, want disconnected", st.Mode)
	}
	if err := f.SetScene(context.Background(), "BRB"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestPrimaryFailureFallsBackPerCall(t *testing.T) {
	srv, hits := newFallbackServer(t)
	sess := &fakeSession{failWith: errors.New("socket closed")}
	f := New(dialerFor(sess, nil), NewFallbackClient(srv.URL), nil)
	f.Connect(context.Background())

	// Primary fails mid-call; the same call completes via the fallback.
	if err := f.SetScene(context.Background(), "BRB"); err != nil {
		t.Fatalf("fallback did not rescue the call: %v", err)
	}
	if *hits != 1 {
		t.Errorf("fallback hits = %d, want 1", *hits)
	}
	if !sess.closed {
		t.Error("broken session not torn down")
	}
	st := f.Status()
	if st.Mode != ModeFallback || st.ConnectedDirect {
		t.Errorf("status = %+v, want fallback without session", st)
	}

	// No auto-retry of the primary: the next call goes straight to fallback.
	if err := f.SetScene(context.Background(), "Main"); err != nil {
		t.Fatal(err)
	}
	if sess.calls != 1 {
		t.Errorf("primary called %d times, want 1", sess.calls)
	}
}

func TestFailedFallbackKeepsMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	f := New(nil, NewFallbackClient(srv.URL), nil)
	f.Connect(context.Background())

	if err := f.SetScene(context.Background(), "BRB"); err == nil {
		t.Fatal("expected error from failing fallback")
	}
	st := f.Status()
	if st.Mode != ModeFallback {
		t.Errorf("mode = %q, want unchanged fallback", st.Mode)
	}
	if st.LastError == "" {
		t.Error("fallback failure not recorded")
	}
}

func TestSetSourceVisibleHasNoFallbackRoute(t *testing.T) {
	srv, hits := newFallbackServer(t)
	f := New(nil, NewFallbackClient(srv.URL), nil)
	f.Connect(context.Background())

	err := f.SetSourceVisible(context.Background(), "Main", "Cam", false)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if *hits != 0 {
		t.Error("item-level control must never hit the fallback")
	}
}

func TestScenesViaFallback(t *testing.T) {
	srv, _ := newFallbackServer(t)
	f := New(nil, NewFallbackClient(srv.URL), nil)
	f.Connect(context.Background())

	names, err := f.Scenes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Main" {
		t.Errorf("scenes = %v", names)
	}
	current, err := f.CurrentScene(context.Background())
	if err != nil || current != "Main" {
		t.Errorf("current = %q, %v", current, err)
	}
}

func TestDisabledMode(t *testing.T) {
	f := New(nil, nil, nil)
	if st := f.Status(); st.Mode != ModeDisabled {
		t.Fatalf("mode = %q, want disabled", st.Mode)
	}
	if err := f.SetScene(context.Background(), "BRB"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestReconnectRestoresDirect(t *testing.T) {
	srv, _ := newFallbackServer(t)
	sess := &fakeSession{failWith: errors.New("socket closed")}
	f := New(dialerFor(sess, nil), NewFallbackClient(srv.URL), nil)
	f.Connect(context.Background())
	f.SetScene(context.Background(), "BRB") // drops to fallback

	sess.failWith = nil
	st := f.Reconnect(context.Background())
	if st.Mode != ModeDirect || !st.ConnectedDirect {
		t.Errorf("status after reconnect = %+v, want direct", st)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want cleared", st.LastError)
	}
}
