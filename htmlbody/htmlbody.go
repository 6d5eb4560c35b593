package htmlbody

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
)

// Inline style applied to plain-text bodies. Email clients disagree on
// stylesheet support, so the style rides on the body element itself.
// https://www.smashingmagazine.com/2017/01/introduction-building-sending-html-email-for-web-developers/
const defaultStyle = "font-family: Arial, Helvetica, sans-serif; color: #333333;"

// ContainsTags reports whether s already contains HTML markup. Stray "<"
// characters in ordinary prose (e.g. "a < b") don't count; an actual
// element, end tag, or doctype does.
func ContainsTags(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// Tokenization only errors at EOF for string input.
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken, html.DoctypeToken:
			return true
		}
	}
}

// WithDefaultStyle wraps a plain-text body in a minimal HTML document with
// the package's default font and text color. The body text is escaped, so
// "<" and friends survive the trip.
func WithDefaultStyle(body string) string {
	return fmt.Sprintf(
		`<html><body style=%q><p>%s</p></body></html>`,
		defaultStyle,
		html.EscapeString(body),
	)
}

// Ensure returns body unchanged when it already contains markup, and
// otherwise wraps it via WithDefaultStyle. Bodies authored as HTML are
// trusted verbatim; only bare text gets dressed up.
func Ensure(body string) string {
	if ContainsTags(body) {
		return body
	}
	return WithDefaultStyle(body)
}

// BodyFromFile reads an email body from a file. It's a convenience for
// callers that keep prewritten HTML on disk, and is deliberately decoupled
// from any sending state.
func BodyFromFile(fs afero.Fs, path string) (string, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("can't read the body file: %v", err)
	}
	return string(b), nil
}
