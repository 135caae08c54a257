package routetree

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/wicket/web"
)

// namedHandler builds a handler whose response body identifies it, so
// tests can tell which route won.
func namedHandler(name string) web.Handler {
	return func(_ context.Context, _ *web.Request) *web.Response {
		return web.Text(name)
	}
}

// fakeTerminal records the remaining path it was asked to serve.
type fakeTerminal struct {
	remaining string
}

func (f *fakeTerminal) Serve(_ context.Context, remaining string) *web.Response {
	f.remaining = remaining
	return web.Text("terminal")
}

// mustRegister registers a route or fails the test.
func mustRegister(t *testing.T, tree *Tree, method, path, name string) {
	t.Helper()
	if err := tree.Register(method, path, namedHandler(name)); err != nil {
		t.Fatalf("Register(%s %s) error: %v", method, path, err)
	}
}

// resolveName resolves and invokes the matched handler, returning its
// identifying body.
func resolveName(t *testing.T, tree *Tree, method, path string) (string, *Match) {
	t.Helper()
	m, err := tree.Resolve(method, path)
	if err != nil {
		t.Fatalf("Resolve(%s %s) error: %v", method, path, err)
	}
	if m.Handler == nil {
		t.Fatalf("Resolve(%s %s): no handler in match", method, path)
	}
	resp := m.Handler(context.Background(), nil)
	return string(resp.Body), m
}

func TestResolve_Literal(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/hello", "hello")

	name, m := resolveName(t, tree, "GET", "/hello")
	if name != "hello" {
		t.Errorf("matched %q, want %q", name, "hello")
	}
	if m.Remaining != "" {
		t.Errorf("Remaining = %q, want empty", m.Remaining)
	}
}

func TestResolve_LiteralCaseInsensitive(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/Hello/World", "hw")

	name, _ := resolveName(t, tree, "GET", "/hello/WORLD")
	if name != "hw" {
		t.Errorf("matched %q, want %q", name, "hw")
	}
}

func TestResolve_Params(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/v/:name", "one")
	mustRegister(t, tree, "GET", "/r/:value1/:value2", "two")

	tests := []struct {
		name       string
		path       string
		wantName   string
		wantParams map[string]string
	}{
		{
			name:       "single parameter",
			path:       "/v/Alice",
			wantName:   "one",
			wantParams: map[string]string{"name": "Alice"},
		},
		{
			name:       "two parameters",
			path:       "/r/Alice/Bob",
			wantName:   "two",
			wantParams: map[string]string{"value1": "Alice", "value2": "Bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, m := resolveName(t, tree, "GET", tt.path)
			if name != tt.wantName {
				t.Errorf("matched %q, want %q", name, tt.wantName)
			}
			if len(m.Params) != len(tt.wantParams) {
				t.Errorf("Params = %v, want %v", m.Params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if m.Params[k] != v {
					t.Errorf("Params[%q] = %q, want %q", k, m.Params[k], v)
				}
			}
		})
	}
}

func TestResolve_LiteralBeatsParam(t *testing.T) {
	tree := New()
	// Parameter registered first; the literal must still win.
	mustRegister(t, tree, "GET", "/users/:id", "param")
	mustRegister(t, tree, "GET", "/users/me", "literal")

	name, m := resolveName(t, tree, "GET", "/users/me")
	if name != "literal" {
		t.Errorf("matched %q, want %q", name, "literal")
	}
	if len(m.Params) != 0 {
		t.Errorf("Params = %v, want empty", m.Params)
	}

	name, m = resolveName(t, tree, "GET", "/users/42")
	if name != "param" {
		t.Errorf("matched %q, want %q", name, "param")
	}
	if m.Params["id"] != "42" {
		t.Errorf("Params[id] = %q, want %q", m.Params["id"], "42")
	}
}

func TestResolve_DeeperWins(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/api", "shallow")
	mustRegister(t, tree, "GET", "/api/items", "deep")

	name, _ := resolveName(t, tree, "GET", "/api/items")
	if name != "deep" {
		t.Errorf("matched %q, want %q", name, "deep")
	}
}

func TestResolve_RemainingTail(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/files", "files")

	name, m := resolveName(t, tree, "GET", "/files/a/b.txt")
	if name != "files" {
		t.Errorf("matched %q, want %q", name, "files")
	}
	if m.Remaining != "a/b.txt" {
		t.Errorf("Remaining = %q, want %q", m.Remaining, "a/b.txt")
	}
}

// Concatenating the matched prefix with the remaining tail must
// reproduce the request path.
func TestResolve_PathReassembly(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/files", "files")

	paths := []string{"/files", "/files/a", "/files/a/b/c.txt"}
	for _, path := range paths {
		_, m := resolveName(t, tree, "GET", path)
		rebuilt := "/files"
		if m.Remaining != "" {
			rebuilt += "/" + m.Remaining
		}
		if !strings.EqualFold(rebuilt, path) {
			t.Errorf("path %q rebuilt as %q", path, rebuilt)
		}
	}
}

func TestResolve_MethodMismatch(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/hello", "hello")

	_, err := tree.Resolve("POST", "/hello")
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Resolve(POST) error = %v, want ErrNoRoute", err)
	}
}

func TestResolve_Miss(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/hello", "hello")

	_, err := tree.Resolve("GET", "/nonexistent")
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Resolve() error = %v, want ErrNoRoute", err)
	}
}

func TestResolve_EmptyPath(t *testing.T) {
	tree := New()

	_, err := tree.Resolve("GET", "")
	if !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Resolve(\"\") error = %v, want ErrEmptyPath", err)
	}
}

func TestResolve_ParamRejectsEmptySegment(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/v/:name", "v")

	if _, err := tree.Resolve("GET", "/v/"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("Resolve(/v/) error = %v, want ErrNoRoute", err)
	}
}

func TestMount_ServesTail(t *testing.T) {
	tree := New()
	term := &fakeTerminal{}
	if err := tree.Mount("/static", term); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	m, err := tree.Resolve("GET", "/static/css/site.css")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if m.Terminal == nil {
		t.Fatal("expected a terminal match")
	}
	if m.Remaining != "css/site.css" {
		t.Errorf("Remaining = %q, want %q", m.Remaining, "css/site.css")
	}
}

func TestMount_EmptyTail(t *testing.T) {
	tree := New()
	if err := tree.Mount("/static", &fakeTerminal{}); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	m, err := tree.Resolve("GET", "/static")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if m.Terminal == nil {
		t.Fatal("expected a terminal match")
	}
	if m.Remaining != "" {
		t.Errorf("Remaining = %q, want empty", m.Remaining)
	}
}

func TestMount_GETOnly(t *testing.T) {
	tree := New()
	if err := tree.Mount("/static", &fakeTerminal{}); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	if _, err := tree.Resolve("POST", "/static/thing"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("Resolve(POST) error = %v, want ErrNoRoute", err)
	}
}

func TestMount_SpecificRouteWins(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "GET", "/static/api/info", "specific")
	if err := tree.Mount("/static", &fakeTerminal{}); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	name, _ := resolveName(t, tree, "GET", "/static/api/info")
	if name != "specific" {
		t.Errorf("matched %q, want %q", name, "specific")
	}

	m, err := tree.Resolve("GET", "/static/other.txt")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if m.Terminal == nil {
		t.Error("expected the servant to take the unmatched tail")
	}
}

func TestRegister_Errors(t *testing.T) {
	t.Run("beneath terminal", func(t *testing.T) {
		tree := New()
		if err := tree.Mount("/static", &fakeTerminal{}); err != nil {
			t.Fatalf("Mount() error: %v", err)
		}
		err := tree.Register("GET", "/static/deep", namedHandler("x"))
		if !errors.Is(err, ErrBeneathTerminal) {
			t.Errorf("Register() error = %v, want ErrBeneathTerminal", err)
		}
	})

	t.Run("duplicate parameter name", func(t *testing.T) {
		tree := New()
		err := tree.Register("GET", "/a/:id/b/:id", namedHandler("x"))
		if !errors.Is(err, ErrDuplicateParam) {
			t.Errorf("Register() error = %v, want ErrDuplicateParam", err)
		}
	})

	t.Run("duplicate route", func(t *testing.T) {
		tree := New()
		mustRegister(t, tree, "GET", "/x", "first")
		if err := tree.Register("GET", "/x", namedHandler("second")); err == nil {
			t.Error("Register() expected error for duplicate route")
		}
	})

	t.Run("second mount on one node", func(t *testing.T) {
		tree := New()
		if err := tree.Mount("/static", &fakeTerminal{}); err != nil {
			t.Fatalf("Mount() error: %v", err)
		}
		if err := tree.Mount("/static", &fakeTerminal{}); !errors.Is(err, ErrAlreadyMounted) {
			t.Errorf("Mount() error = %v, want ErrAlreadyMounted", err)
		}
	})

	t.Run("nil handler", func(t *testing.T) {
		tree := New()
		if err := tree.Register("GET", "/x", nil); err == nil {
			t.Error("Register() expected error for nil handler")
		}
	})
}

func TestResolve_MethodCaseInsensitive(t *testing.T) {
	tree := New()
	mustRegister(t, tree, "get", "/hello", "hello")

	name, _ := resolveName(t, tree, "GET", "/hello")
	if name != "hello" {
		t.Errorf("matched %q, want %q", name, "hello")
	}
}
