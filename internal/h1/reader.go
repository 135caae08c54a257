package h1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// Limits on inbound messages. Oversized heads and bodies are refused
// before allocation.
const (
	maxLineBytes = 64 << 10
	maxBodyBytes = 16 << 20
)

// ErrMalformed reports a request that could not be assembled: a bad
// request line, an undecodable URI, or an invalid Content-Length.
var ErrMalformed = errors.New("malformed request")

// Context is the per-message assembly state: everything reconstituted
// from the byte stream before dispatch. It is mutated only by ReadRequest
// and consumed once by the conductor.
type Context struct {
	Method string
	URI    string // decoded, including query
	Path   string // decoded URI up to '?'
	Query  map[string]string
	Body   []byte

	// ContentLength is the declared body length, or -1 when the header
	// is absent. The conductor compares it against len(Body).
	ContentLength int

	// Upgrade is set when the head requests a WebSocket upgrade; the
	// body is not assembled in that case.
	Upgrade bool

	headers map[string]string // lower-cased keys
}

// Header returns the named header value; lookup is case-insensitive.
func (c *Context) Header(name string) string {
	return c.headers[strings.ToLower(name)]
}

// Headers returns the header map. Keys are lower-cased. The map is owned
// by the Context; callers must not mutate it.
func (c *Context) Headers() map[string]string {
	return c.headers
}

// ReadRequest assembles the next request from the stream. It returns
// io.EOF when the connection closed cleanly between messages, and an
// error wrapping ErrMalformed for unparseable heads. A body shorter than
// its declared Content-Length is not an error here: the partial body is
// kept and the conductor rejects the mismatch with a 400.
func ReadRequest(br *bufio.Reader) (*Context, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}

	method, rawURI, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	uri, err := url.PathUnescape(rawURI)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable URI", ErrMalformed)
	}

	path := uri
	query := map[string]string{}
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		path = uri[:i]
		query = parseQuery(uri[i+1:])
	}

	ctx := &Context{
		Method:        strings.ToUpper(method),
		URI:           uri,
		Path:          path,
		Query:         query,
		ContentLength: -1,
		headers:       map[string]string{},
	}

	if err := readHeaders(br, ctx.headers); err != nil {
		return nil, err
	}

	// An upgrade head bypasses body assembly and is handed to the
	// handshake path by the caller.
	if isUpgrade(ctx.headers) {
		ctx.Upgrade = true
		return ctx, nil
	}

	if cl := ctx.headers["content-length"]; cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad content-length %q", ErrMalformed, cl)
		}
		if n > maxBodyBytes {
			return nil, fmt.Errorf("%w: content-length exceeds limit", ErrMalformed)
		}
		ctx.ContentLength = n
		if n > 0 {
			buf := make([]byte, n)
			read, err := io.ReadFull(br, buf)
			ctx.Body = buf[:read]
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("reading body: %w", err)
			}
		}
	}

	return ctx, nil
}

// readLine reads one CRLF-terminated line, without the terminator. The
// line is accumulated in buffer-sized chunks so the length limit bounds
// allocation even when the terminator never arrives.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxLineBytes {
			return "", fmt.Errorf("%w: header line exceeds limit", ErrMalformed)
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) == 0 {
			return "", io.EOF
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// parseRequestLine splits "METHOD URI HTTP/x.y".
func parseRequestLine(line string) (method, uri string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || !strings.HasPrefix(parts[2], "HTTP/") {
		return "", "", fmt.Errorf("%w: bad request line %q", ErrMalformed, line)
	}
	return parts[0], parts[1], nil
}

// readHeaders reads header lines until the blank separator, storing
// lower-cased keys.
func readHeaders(br *bufio.Reader, headers map[string]string) error {
	for {
		line, err := readLine(br)
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("%w: unterminated headers", ErrMalformed)
			}
			return err
		}
		if line == "" {
			return nil
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return fmt.Errorf("%w: bad header line %q", ErrMalformed, line)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		headers[key] = strings.TrimSpace(line[i+1:])
	}
}

// parseQuery parses a query string. Duplicate keys resolve to the last
// value; empty keys are dropped.
func parseQuery(q string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		key, value := pair, ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key, value = pair[:i], pair[i+1:]
		}
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// isUpgrade reports whether the head requests a WebSocket upgrade:
// "Connection: Upgrade" and "Upgrade: websocket", both case-insensitive.
func isUpgrade(headers map[string]string) bool {
	if !strings.EqualFold(headers["upgrade"], "websocket") {
		return false
	}
	for _, token := range strings.Split(headers["connection"], ",") {
		if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
			return true
		}
	}
	return false
}

// WantsClose reports whether the client asked to close the connection
// after this response.
func (c *Context) WantsClose() bool {
	for _, token := range strings.Split(c.headers["connection"], ",") {
		if strings.EqualFold(strings.TrimSpace(token), "close") {
			return true
		}
	}
	return false
}
