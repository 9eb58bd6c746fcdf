package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/docpages/internal/routes"
	"github.com/JaimeStill/docpages/pkg/logging"
	pkgroutes "github.com/JaimeStill/docpages/pkg/routes"
)

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestBuild_Route(t *testing.T) {
	sys := routes.New(logging.Discard())
	sys.RegisterRoute(pkgroutes.Route{Method: "GET", Pattern: "/healthz", Handler: respond("OK")})

	rec := httptest.NewRecorder()
	sys.Build().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestBuild_NestedGroups(t *testing.T) {
	sys := routes.New(logging.Discard())
	sys.RegisterGroup(pkgroutes.Group{
		Prefix: "/api",
		Routes: []pkgroutes.Route{
			{Method: "POST", Pattern: "/upload", Handler: respond("upload")},
		},
		Children: []pkgroutes.Group{
			{
				Prefix: "/pages",
				Routes: []pkgroutes.Route{
					{
						Method:  "GET",
						Pattern: "/{doc_id}/{page_number}",
						Handler: func(w http.ResponseWriter, r *http.Request) {
							w.Write([]byte(r.PathValue("doc_id") + ":" + r.PathValue("page_number")))
						},
					},
				},
			},
		},
	})

	handler := sys.Build()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{"POST", "/api/upload", http.StatusOK, "upload"},
		{"GET", "/api/pages/abc/3", http.StatusOK, "abc:3"},
		{"GET", "/api/upload", http.StatusMethodNotAllowed, ""},
		{"GET", "/pages/abc/3", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestGroupsAndRoutes(t *testing.T) {
	sys := routes.New(logging.Discard())
	sys.RegisterGroup(pkgroutes.Group{Prefix: "/api"})
	sys.RegisterRoute(pkgroutes.Route{Method: "GET", Pattern: "/readyz", Handler: respond("READY")})

	if len(sys.Groups()) != 1 {
		t.Errorf("Groups() = %d, want 1", len(sys.Groups()))
	}
	if len(sys.Routes()) != 1 {
		t.Errorf("Routes() = %d, want 1", len(sys.Routes()))
	}
}
