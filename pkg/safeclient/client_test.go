package safeclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsForbiddenIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fd00::1", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"142.250.74.14", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		if got := IsForbiddenIP(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("IsForbiddenIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
	if !IsForbiddenIP(nil) {
		t.Error("nil IP must be forbidden")
	}
}

func TestNew_RefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = New().Do(req)
	if !errors.Is(err, ErrForbiddenIP) {
		t.Fatalf("expected ErrForbiddenIP, got %v", err)
	}
}

func TestNewWithTimeout(t *testing.T) {
	if c := NewWithTimeout(5 * time.Second); c.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v", c.Timeout)
	}
	if c := New(); c.Timeout != 0 {
		t.Fatalf("New() should not set a timeout, got %v", c.Timeout)
	}
}
