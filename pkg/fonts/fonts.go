// Package fonts provides the fonts used to measure and draw labels.
//
// The Go font family ships with golang.org/x/image and is compiled into the
// binary, so text metrics are identical on every machine. The SVG sink
// names the same family first in its CSS stack so browsers that have it
// installed render text with the widths the label engine measured.
package fonts

import (
	"encoding/base64"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Regular returns the TTF data of the regular label font.
func Regular() []byte { return goregular.TTF }

// Bold returns the TTF data of the bold region-label font.
func Bold() []byte { return gobold.TTF }

var (
	regularBase64     string
	regularBase64Once sync.Once
)

// RegularBase64 returns the regular font as a base64 string for embedding
// in an SVG @font-face rule. The result is cached after first computation.
func RegularBase64() string {
	regularBase64Once.Do(func() {
		regularBase64 = base64.StdEncoding.EncodeToString(goregular.TTF)
	})
	return regularBase64
}

// FontFamily is the CSS font-family name of the embedded font.
const FontFamily = "Go"

// FallbackFontFamily lists fallbacks for viewers that ignore @font-face.
const FallbackFontFamily = `'Go', 'Noto Sans KR', 'Helvetica Neue', Arial, sans-serif`
