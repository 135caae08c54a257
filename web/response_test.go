package web

import (
	"encoding/json"
	"net/http"
	"testing"
)

// decodeError unmarshals the JSON error body.
func decodeError(t *testing.T, resp *Response) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("Unmarshal(%q): %v", resp.Body, err)
	}
	return body
}

func TestBuilders(t *testing.T) {
	tests := []struct {
		name       string
		resp       *Response
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{
			name:       "Text",
			resp:       Text("hello"),
			wantStatus: http.StatusOK,
			wantType:   ContentTypeText,
			wantBody:   "hello",
		},
		{
			name:       "HTML",
			resp:       HTML([]byte("<p>x</p>")),
			wantStatus: http.StatusOK,
			wantType:   ContentTypeHTML,
			wantBody:   "<p>x</p>",
		},
		{
			name:       "OK",
			resp:       OK("image/png", []byte{0x89}),
			wantStatus: http.StatusOK,
			wantType:   "image/png",
			wantBody:   "\x89",
		},
		{
			name:       "JSON",
			resp:       JSON(http.StatusCreated, map[string]int{"n": 1}),
			wantStatus: http.StatusCreated,
			wantType:   ContentTypeJSON,
			wantBody:   `{"n":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.resp.Status, tt.wantStatus)
			}
			if got := tt.resp.Headers[HeaderContentType]; got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if string(tt.resp.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", tt.resp.Body, tt.wantBody)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	resp := NoContent()
	if resp.Status != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", resp.Status)
	}
	if len(resp.Body) != 0 {
		t.Errorf("Body = %q, want empty", resp.Body)
	}
	if _, ok := resp.Headers[HeaderContentType]; ok {
		t.Error("Content-Type set on empty response")
	}
}

// Routing misses carry the unmatched path alongside the reason.
func TestNotFound_CarriesPath(t *testing.T) {
	resp := NotFound("/missing/thing")

	if resp.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
	body := decodeError(t, resp)
	if body["path"] != "/missing/thing" {
		t.Errorf("path = %q, want /missing/thing", body["path"])
	}
	if body["reason"] != "no route matched" {
		t.Errorf("reason = %q, want %q", body["reason"], "no route matched")
	}
}

// Other error builders omit the path field entirely.
func TestErrorBuilders_OmitPath(t *testing.T) {
	tests := []struct {
		name       string
		resp       *Response
		wantStatus int
		wantReason string
	}{
		{name: "BadRequest", resp: BadRequest("Incomplete request."), wantStatus: 400, wantReason: "Incomplete request."},
		{name: "Forbidden", resp: Forbidden("directory access denied"), wantStatus: 403, wantReason: "directory access denied"},
		{name: "NotFoundReason", resp: NotFoundReason("file not found"), wantStatus: 404, wantReason: "file not found"},
		{name: "InternalError", resp: InternalError("boom"), wantStatus: 500, wantReason: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.resp.Status, tt.wantStatus)
			}
			body := decodeError(t, tt.resp)
			if body["reason"] != tt.wantReason {
				t.Errorf("reason = %q, want %q", body["reason"], tt.wantReason)
			}
			if _, ok := body["path"]; ok {
				t.Errorf("body = %v, path must be omitted", body)
			}
		})
	}
}

func TestWithHeader(t *testing.T) {
	resp := Text("x").WithHeader("Cache-Control", "no-store")
	if resp.Headers["Cache-Control"] != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", resp.Headers["Cache-Control"])
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "javascript", file: "app.js", want: "text/javascript"},
		{name: "json", file: "data.json", want: ContentTypeJSON},
		{name: "source map", file: "app.js.map", want: ContentTypeJSON},
		{name: "wasm", file: "mod.wasm", want: "application/wasm"},
		{name: "uppercase extension", file: "APP.JS", want: "text/javascript"},
		{name: "no extension", file: "LICENSE", want: ContentTypeBinary},
		{name: "unknown extension", file: "blob.xyzzy", want: ContentTypeBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentTypeFor(tt.file); got != tt.want {
				t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}
