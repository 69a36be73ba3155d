package captcha

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var challengeMarkers = []string{"captcha", "sicherheitsabfrage"}

// DetectChallengeMarkup reports whether raw page markup contains an image
// challenge: an image whose id, class, src or alt names it, or challenge copy
// next to an input.
func DetectChallengeMarkup(html string) bool {
	if strings.TrimSpace(html) == "" {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		lower := strings.ToLower(html)
		return strings.Contains(lower, "<img") && containsMarker(lower)
	}

	found := false
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"id", "class", "src", "alt", "name"} {
			if v, ok := s.Attr(attr); ok && containsMarker(strings.ToLower(v)) {
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return true
	}

	doc.Find("form, section, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find("img").Length() == 0 || s.Find("input").Length() == 0 {
			return true
		}
		id, _ := s.Attr("id")
		if containsMarker(strings.ToLower(id + " " + s.Text())) {
			found = true
			return false
		}
		return true
	})
	return found
}

func containsMarker(s string) bool {
	for _, m := range challengeMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
