package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	lzstring "github.com/daku10/go-lz-string"
)

// QueryParam is the URL query key carrying shared code
const QueryParam = "code"

// uriAlphabet is the character set of lz-string's URI component encoding
const uriAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+-$"

var ErrTooLarge = errors.New("code exceeds share size limit")

// Codec compresses source text into a URL-safe query value and back. The
// encoding is lz-string's compressToEncodedURIComponent, so links made by
// the browser editor and by the server are interchangeable.
type Codec struct {
	baseURL  string
	maxBytes int
}

// NewCodec creates a codec. maxBytes bounds both the source accepted by
// Encode and the text Decode will return; zero disables the bound.
func NewCodec(baseURL string, maxBytes int) *Codec {
	return &Codec{baseURL: baseURL, maxBytes: maxBytes}
}

// Encode returns the query value for code. Empty code encodes to "".
func (c *Codec) Encode(code string) (string, error) {
	if code == "" {
		return "", nil
	}
	if c.maxBytes > 0 && len(code) > c.maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(code), c.maxBytes)
	}
	if !utf8.ValidString(code) {
		return "", errors.New("code is not valid UTF-8")
	}

	param, err := lzstring.CompressToEncodedURIComponent(code)
	if err != nil {
		return "", fmt.Errorf("compressing code: %w", err)
	}
	return param, nil
}

// Decode returns the code carried by param. Any malformed input decodes
// to "", never an error.
func (c *Codec) Decode(param string) (code string) {
	defer func() {
		if recover() != nil {
			code = ""
		}
	}()

	param = strings.TrimSpace(param)
	if param == "" {
		return ""
	}
	// an unescaped '+' arrives as a space after query decoding
	param = strings.ReplaceAll(param, " ", "+")
	if strings.Trim(param, uriAlphabet) != "" {
		return ""
	}

	out, err := lzstring.DecompressFromEncodedURIComponent(param)
	if err != nil || !utf8.ValidString(out) {
		return ""
	}
	if c.maxBytes > 0 && len(out) > c.maxBytes {
		return ""
	}
	return out
}

// URL returns the share link for a query value
func (c *Codec) URL(param string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid share base url: %w", err)
	}
	q := u.Query()
	if param == "" {
		q.Del(QueryParam)
	} else {
		q.Set(QueryParam, param)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromURL extracts and decodes the code carried by a share link
func (c *Codec) FromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return c.Decode(u.Query().Get(QueryParam))
}
