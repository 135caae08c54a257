package wicket

import (
	"fmt"
	"net/http"

	"github.com/nerrad567/wicket/internal/servant"
	"github.com/nerrad567/wicket/web"
)

// Route binds method on path to a handler. A path segment beginning with
// ':' binds its remainder as a parameter; literal segments match
// case-insensitively. Registration must finish before Start.
func (s *Server) Route(method, path string, h Handler) error {
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.tree.Register(method, path, h); err != nil {
		return fmt.Errorf("registering %s %s: %w", method, path, err)
	}
	return nil
}

// Get registers a GET route.
func (s *Server) Get(path string, h Handler) error { return s.Route(http.MethodGet, path, h) }

// Post registers a POST route.
func (s *Server) Post(path string, h Handler) error { return s.Route(http.MethodPost, path, h) }

// Put registers a PUT route.
func (s *Server) Put(path string, h Handler) error { return s.Route(http.MethodPut, path, h) }

// Delete registers a DELETE route.
func (s *Server) Delete(path string, h Handler) error { return s.Route(http.MethodDelete, path, h) }

// Patch registers a PATCH route.
func (s *Server) Patch(path string, h Handler) error { return s.Route(http.MethodPatch, path, h) }

// Head registers a HEAD route.
func (s *Server) Head(path string, h Handler) error { return s.Route(http.MethodHead, path, h) }

// Options registers an OPTIONS route. Dispatch answers every OPTIONS
// request with 204 before route resolution, so the handler is never
// invoked on the wire path; the tree still records and validates the
// registration.
func (s *Server) Options(path string, h Handler) error { return s.Route(http.MethodOptions, path, h) }

// Trace registers a TRACE route.
func (s *Server) Trace(path string, h Handler) error { return s.Route(http.MethodTrace, path, h) }

// File mounts a directory on disk as a terminal servant at path. GET
// requests beneath the path are resolved against the directory;
// directories serve their index.html, hidden files are refused.
func (s *Server) File(path, directory string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.tree.Mount(path, servant.NewFile(directory)); err != nil {
		return fmt.Errorf("mounting directory at %s: %w", path, err)
	}
	return nil
}

// Zip mounts a zip archive as a terminal servant at path. The archive is
// decoded into memory once; a corrupt archive fails here, not at serve
// time.
func (s *Server) Zip(path string, archive []byte) error {
	if err := s.editable(); err != nil {
		return err
	}
	z, err := servant.NewZip(archive)
	if err != nil {
		return fmt.Errorf("mounting archive at %s: %w", path, err)
	}
	if err := s.tree.Mount(path, z); err != nil {
		return fmt.Errorf("mounting archive at %s: %w", path, err)
	}
	return nil
}

// Middleware installs an interceptor. The dispatch point is determined by
// the declared kind: OnRequest, OnResponse, or OnUpgrade. Within one kind,
// interceptors run in registration order.
func (s *Server) Middleware(m any) error {
	if err := s.editable(); err != nil {
		return err
	}
	switch v := m.(type) {
	case web.OnRequest:
		s.chain.onRequest = append(s.chain.onRequest, v)
	case web.OnResponse:
		s.chain.onResponse = append(s.chain.onResponse, v)
	case web.OnUpgrade:
		s.chain.onUpgrade = append(s.chain.onUpgrade, v)
	default:
		return fmt.Errorf("unsupported middleware kind %T (want wicket.OnRequest, wicket.OnResponse, or wicket.OnUpgrade)", m)
	}
	return nil
}

// middlewareChain holds the three interceptor kinds in registration
// order.
type middlewareChain struct {
	onRequest  []web.OnRequest
	onResponse []web.OnResponse
	onUpgrade  []web.OnUpgrade
}
