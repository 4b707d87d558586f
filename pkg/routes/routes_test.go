package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/tally/pkg/routes"
)

func TestRegisterNestedGroups(t *testing.T) {
	mux := http.NewServeMux()

	hit := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(name + ":" + r.PathValue("id")))
		}
	}

	routes.Register(mux, routes.Group{
		Prefix: "/processing",
		Children: []routes.Group{{
			Prefix: "/documents",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: hit("upload")},
				{Method: "POST", Pattern: "/{id}/extract", Handler: hit("extract")},
			},
		}},
	})

	tests := []struct {
		method string
		path   string
		want   string
		status int
	}{
		{"POST", "/processing/documents", "upload:", http.StatusOK},
		{"POST", "/processing/documents/abc/extract", "extract:abc", http.StatusOK},
		{"GET", "/processing/documents/abc/extract", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.want != "" && rec.Body.String() != tt.want {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestPatterns(t *testing.T) {
	got := routes.Patterns(
		routes.Group{
			Prefix: "/documents",
			Routes: []routes.Route{
				{Method: "GET", Pattern: ""},
				{Method: "GET", Pattern: "/{id}"},
			},
		},
		routes.Group{
			Routes: []routes.Route{{Pattern: "/probe"}},
		},
	)

	want := []string{"GET /documents", "GET /documents/{id}", "/probe"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
