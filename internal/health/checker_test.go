package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeProber struct {
	err    error
	status int
}

func (f *fakeProber) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := httptest.NewRecorder()
	rec.WriteHeader(f.status)
	return rec.Result(), nil
}

func TestProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(nil)
	if err := checker.Probe(context.Background(), srv.URL); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestProbeRedirectCountsAsSuccess(t *testing.T) {
	checker := NewChecker(&fakeProber{status: http.StatusNotModified})
	if err := checker.Probe(context.Background(), "http://127.0.0.1:1/"); err != nil {
		t.Errorf("expected 3xx to pass, got %v", err)
	}
}

func TestProbeNonSuccessStatusFails(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		checker := NewChecker(&fakeProber{status: status})
		if err := checker.Probe(context.Background(), "http://127.0.0.1:1/"); err == nil {
			t.Errorf("expected status %d to fail", status)
		}
	}
}

func TestProbeConnectionErrorFails(t *testing.T) {
	checker := NewChecker(&fakeProber{err: errors.New("connection refused")})
	if err := checker.Probe(context.Background(), "http://127.0.0.1:1/"); err == nil {
		t.Error("expected connection error to fail")
	}
}

func TestProbeHonorsContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	checker := NewChecker(&http.Client{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := checker.Probe(ctx, srv.URL); err == nil {
		t.Error("expected timeout failure")
	}
}
