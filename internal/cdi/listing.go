package cdi

import (
	"strings"

	"golang.org/x/net/html"
)

// ScanListing returns the href of every anchor in body that names a raster
// file, in document order. Duplicates are kept. Tokens the tokenizer cannot
// make sense of are skipped.
func ScanListing(body string) []string {
	var files []string

	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or whatever ended a truncated document.
			return files
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					href := string(val)
					if strings.HasSuffix(href, RasterExtension) {
						files = append(files, href)
					}
					break
				}
				if !more {
					break
				}
			}
		}
	}
}
