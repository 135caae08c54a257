package h1

import (
	"bufio"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/nerrad567/wicket/web"
)

// WriteResponse serialises a fully-buffered response: status line,
// headers, body. Content-Length is always written and equals the body
// byte length; any Content-Length in the response header map is ignored.
func WriteResponse(bw *bufio.Writer, resp *web.Response) error {
	text := http.StatusText(resp.Status)
	if text == "" {
		text = "Status"
	}
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", resp.Status, text); err != nil {
		return err
	}

	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		if http.CanonicalHeaderKey(name) == web.HeaderContentLength {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", name, resp.Headers[name]); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(bw, "%s: %s\r\n\r\n", web.HeaderContentLength, strconv.Itoa(len(resp.Body))); err != nil {
		return err
	}

	if len(resp.Body) > 0 {
		if _, err := bw.Write(resp.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}
