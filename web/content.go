package web

import (
	"mime"
	"path"
	"strings"
)

// extraTypes covers common web asset extensions that the platform MIME
// database misses or reports inconsistently across systems.
var extraTypes = map[string]string{
	".js":    "text/javascript",
	".mjs":   "text/javascript",
	".json":  ContentTypeJSON,
	".wasm":  "application/wasm",
	".woff2": "font/woff2",
	".map":   ContentTypeJSON,
}

// ContentTypeFor derives a MIME type from a file name. Unknown extensions
// fall back to application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ContentTypeBinary
	}
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return ContentTypeBinary
}
