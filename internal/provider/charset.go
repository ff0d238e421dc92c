package provider

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var prologEncoding = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

// toUTF8 normalises a response body to UTF-8. Valid UTF-8 is returned as is;
// anything else is decoded with the declared charset, falling back to
// Windows-1252 which the RNDC servers emit for accented text.
func toUTF8(body []byte, contentType string) string {
	if utf8.Valid(body) {
		return string(body)
	}

	enc := lookupEncoding(declaredCharset(body, contentType))
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	return string(decoded)
}

func declaredCharset(body []byte, contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := strings.TrimSpace(params["charset"]); cs != "" {
			return cs
		}
	}

	head := body
	if len(head) > 256 {
		head = head[:256]
	}
	if m := prologEncoding.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}

func lookupEncoding(label string) encoding.Encoding {
	if label == "" {
		return charmap.Windows1252
	}
	enc, err := htmlindex.Get(label)
	if err != nil || enc == encoding.Nop {
		return charmap.Windows1252
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return charmap.Windows1252
	}
	return enc
}
