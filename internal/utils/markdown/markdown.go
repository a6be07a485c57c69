package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	htmlTag    = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	imageOnly  = regexp.MustCompile(`^!\[[^\]]*\]\([^)]+\)$`)
	noiseClass = []string{"share", "social", "advert", "ad-", "promo", "related", "comment"}
)

// FromArticleHTML turns an article body into markdown. Plain text passes
// through trimmed; markup is stripped of scripts, embeds and share widgets
// first. Standalone images are dropped since articles carry them separately.
func FromArticleHTML(body string) string {
	body = strings.TrimSpace(body)
	if body == "" || !htmlTag.MatchString(body) {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	content := doc.Find("body")
	content.Find("script, style, noscript, iframe, form, button, svg").Remove()
	content.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		attrs := strings.ToLower(sel.AttrOr("class", "") + " " + sel.AttrOr("id", ""))
		for _, kw := range noiseClass {
			if strings.Contains(attrs, kw) {
				sel.Remove()
				return
			}
		}
	})

	inner, err := content.Html()
	if err != nil {
		return body
	}
	out, err := md.NewConverter("", true, nil).ConvertString(inner)
	if err != nil {
		return body
	}
	return clean(out)
}

func clean(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if imageOnly.MatchString(strings.TrimSpace(l)) {
			continue
		}
		kept = append(kept, strings.TrimRight(l, " \t"))
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(kept, "\n"), "\n\n"))
}
