package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/cart/items", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	logged := buf.String()
	for _, want := range []string{"method=POST", "path=/cart/items", "status=201"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %q: %s", want, logged)
		}
	}
}

func TestLogging_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("log missing implicit 200: %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("cart gone")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "cart gone") {
		t.Errorf("log missing panic details: %s", buf.String())
	}
}

func TestWithClientProfile(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   ClientProfile
		wantOK bool
	}{
		{
			name:   "full profile",
			header: `app="web";version="2.1", platform="android"`,
			want:   ClientProfile{App: "web", Version: "2.1", Platform: "android"},
			wantOK: true,
		},
		{
			name:   "app only",
			header: `app="cli"`,
			want:   ClientProfile{App: "cli"},
			wantOK: true,
		},
		{name: "absent", header: "", wantOK: false},
		{name: "malformed ignored", header: `app=`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ClientProfile
			var ok bool
			handler := WithClientProfile()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = ClientProfileFrom(r.Context())
			}))

			req := httptest.NewRequest("GET", "/products", nil)
			if tt.header != "" {
				req.Header.Set("Storefront-Client", tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if ok != tt.wantOK {
				t.Fatalf("profile present = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("profile = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mk("outer"), mk("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
