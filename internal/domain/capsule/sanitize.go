package capsule

import (
	"fmt"
	"regexp"
)

// MaxHTMLEntryBytes rejects oversized HTML entries pre-persist.
const MaxHTMLEntryBytes = 2 << 20 // 2 MiB

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	onAttrPattern    = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	headOpenPattern  = regexp.MustCompile(`(?i)<head[^>]*>`)
	bodyOpenPattern  = regexp.MustCompile(`(?i)<body[^>]*>`)
)

// SanitizeHTML strips <script> tags and inline on* handlers, and injects a
// <base href> plus a root container div. It returns an error for entries
// over MaxHTMLEntryBytes.
func SanitizeHTML(source []byte, baseHref string) ([]byte, error) {
	if len(source) > MaxHTMLEntryBytes {
		return nil, fmt.Errorf("html entry exceeds %d bytes", MaxHTMLEntryBytes)
	}

	out := scriptTagPattern.ReplaceAll(source, nil)
	out = onAttrPattern.ReplaceAll(out, nil)

	baseTag := []byte(fmt.Sprintf(`<base href="%s">`, baseHref))
	if headOpenPattern.Match(out) {
		out = headOpenPattern.ReplaceAllFunc(out, func(m []byte) []byte {
			return append(append([]byte{}, m...), baseTag...)
		})
	} else {
		out = append(append([]byte{}, baseTag...), out...)
	}

	rootDiv := []byte(`<div id="root"></div>`)
	if bodyOpenPattern.Match(out) {
		out = bodyOpenPattern.ReplaceAllFunc(out, func(m []byte) []byte {
			return append(append([]byte{}, m...), rootDiv...)
		})
	}

	return out, nil
}
