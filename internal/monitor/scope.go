package monitor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// scope narrows body to the outer HTML of the elements matching selector.
// ok is false when nothing matched; body is returned unchanged then.
func scope(body []byte, selector string) (scoped []byte, ok bool, err error) {
	if selector == "" {
		return body, true, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return body, false, nil
	}
	var sb strings.Builder
	var outerErr error
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			outerErr = fmt.Errorf("render %q: %w", selector, err)
			return false
		}
		sb.WriteString(html)
		sb.WriteByte('\n')
		return true
	})
	if outerErr != nil {
		return nil, false, outerErr
	}
	return []byte(sb.String()), true, nil
}
