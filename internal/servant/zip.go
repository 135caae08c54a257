package servant

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/wicket/web"
)

// Zip serves files from an archive decoded into memory once at
// construction. Entry contents are immutable after load and shared by
// every response that serves them.
type Zip struct {
	entries map[string]zipEntry
}

// zipEntry is one decoded archive member. Directory entries carry empty
// content.
type zipEntry struct {
	content []byte
	dir     bool
}

// NewZip decodes the archive. Any failure during the single pass over the
// entries is fatal to construction.
func NewZip(archive []byte) (*Zip, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	z := &Zip{entries: make(map[string]zipEntry, len(r.File))}
	for _, f := range r.File {
		name := normaliseEntryName(f.Name)
		if f.FileInfo().IsDir() {
			z.entries[strings.TrimSuffix(name, "/")] = zipEntry{dir: true}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening archive entry %q: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", f.Name, err)
		}
		z.entries[name] = zipEntry{content: content}
	}
	return z, nil
}

// normaliseEntryName strips leading '/' and './' from an archive entry
// name.
func normaliseEntryName(name string) string {
	for {
		switch {
		case strings.HasPrefix(name, "/"):
			name = name[1:]
		case strings.HasPrefix(name, "./"):
			name = name[2:]
		default:
			return name
		}
	}
}

// Serve resolves remaining against the archive.
//
// Resolution order: exact file match, root index for the empty path,
// directory index for a trailing slash, directory index for a
// fragment URL (single-page-app fallback), index of an implicit
// directory, then 404.
func (z *Zip) Serve(_ context.Context, remaining string) *web.Response {
	p := strings.TrimPrefix(remaining, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.ReplaceAll(p, "..", "")

	hasFragment := false
	directoryPath := strings.TrimSuffix(p, "/")
	if i := strings.IndexByte(p, '#'); i >= 0 {
		hasFragment = true
		directoryPath = strings.TrimSuffix(p[:i], "/")
	}

	if e, ok := z.findFile(p); ok && !e.dir {
		return serveEntry(p, e)
	}

	switch {
	case p == "":
		return z.serveIndex("")
	case strings.HasSuffix(p, "/"):
		return z.serveIndex(directoryPath)
	case hasFragment:
		return z.serveIndex(directoryPath)
	case z.isImplicitDirectory(p):
		return z.serveIndex(p)
	default:
		return web.NotFoundReason("file not found in archive")
	}
}

// findFile tries the keys p, ./p, and /p in that order.
func (z *Zip) findFile(p string) (zipEntry, bool) {
	for _, key := range []string{p, "./" + p, "/" + p} {
		if e, ok := z.entries[key]; ok {
			return e, true
		}
	}
	return zipEntry{}, false
}

// serveIndex serves the index.html inside directory d ("" means the
// archive root).
func (z *Zip) serveIndex(d string) *web.Response {
	name := "index.html"
	if d != "" {
		name = d + "/index.html"
	}
	e, ok := z.findFile(name)
	if !ok || e.dir {
		return web.NotFoundReason("file not found in archive")
	}
	return serveEntry(name, e)
}

// isImplicitDirectory reports whether any stored key lies beneath p.
func (z *Zip) isImplicitDirectory(p string) bool {
	prefix := p + "/"
	for key := range z.entries {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// serveEntry builds the response for one archive member. The content
// slice is shared, never copied; entries are immutable after load.
func serveEntry(name string, e zipEntry) *web.Response {
	return web.OK(web.ContentTypeFor(name), e.content)
}
