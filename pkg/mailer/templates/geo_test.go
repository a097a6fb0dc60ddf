package templates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIPAPIResolverSkipsNonPublic(t *testing.T) {
	r := IPAPIResolver{BaseURL: "http://127.0.0.1:1/"} // unreachable on purpose
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.5", "::1", "garbage", ""} {
		if _, err := r.Lookup(context.Background(), ip); !errors.Is(err, ErrNonPublicIP) {
			t.Errorf("%q: expected ErrNonPublicIP, got %v", ip, err)
		}
	}
}

func TestIPAPIResolverLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/203.0.113.9"):
			_, _ = w.Write([]byte(`{"status":"success","country":"Indonesia","regionName":"West Java","city":"Bandung","timezone":"Asia/Jakarta"}`))
		case strings.HasSuffix(req.URL.Path, "/198.51.100.1"):
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()
	r := IPAPIResolver{Client: srv.Client(), BaseURL: srv.URL + "/"}

	g, err := r.Lookup(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if FormatGeo(g) != "Bandung, West Java, Indonesia" || g.Timezone != "Asia/Jakarta" {
		t.Fatalf("unexpected geo %+v", g)
	}
	if _, err := r.Lookup(context.Background(), "198.51.100.1"); err == nil {
		t.Fatal("expected failure status to surface")
	}
	if _, err := r.Lookup(context.Background(), "203.0.113.50"); err == nil {
		t.Fatal("expected non-200 to surface")
	}
}
