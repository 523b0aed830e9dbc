package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressMinSize keeps short JSON replies uncompressed
const compressMinSize = 1024

// Compress gzips responses for clients that accept it. It wraps the whole
// router rather than running as gin middleware so hijacked WebSocket
// connections pass through untouched.
func Compress(h http.Handler) (http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(compressMinSize),
		gzhttp.ContentTypes([]string{"application/json", "text/plain"}),
	)
	if err != nil {
		return nil, err
	}
	return wrap(h), nil
}
