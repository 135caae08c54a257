package servant

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/wicket/web"
)

// File serves files beneath a base directory on disk. The filesystem is
// external: File holds only the base path and consults the disk on every
// request.
type File struct {
	base string
}

// NewFile creates a file servant rooted at dir.
func NewFile(dir string) *File {
	return &File{base: dir}
}

// Serve resolves remaining against the base directory.
//
// Traversal sequences are stripped, directories resolve to their
// index.html (403 when absent), hidden files are refused with 403, and a
// missing target yields 404.
func (f *File) Serve(_ context.Context, remaining string) *web.Response {
	clean := strings.ReplaceAll(remaining, "..", "")
	clean = strings.TrimPrefix(clean, "/")

	target := filepath.Join(f.base, filepath.FromSlash(clean))

	info, err := os.Stat(target)
	if err != nil {
		return web.NotFoundReason("file not found")
	}

	if info.IsDir() {
		target = filepath.Join(target, "index.html")
		if _, err := os.Stat(target); err != nil {
			return web.Forbidden("directory listing is not permitted")
		}
	}

	if isHidden(target) {
		return web.Forbidden("hidden files are not served")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return web.NotFoundReason("file not found")
	}

	return web.OK(web.ContentTypeFor(target), data)
}

// isHidden reports whether the file's base name starts with a dot. The
// POSIX dotfile rule is applied on every platform.
func isHidden(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
