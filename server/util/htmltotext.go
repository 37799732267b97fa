package util

import (
	"strings"

	"golang.org/x/net/html"
)

// HtmlToText extracts plain text from an HTML fragment, keeping at most
// maxWords words. Script and style contents are skipped. On a parse failure
// the input is returned stripped of nothing; slug generation tolerates that.
func HtmlToText(fragment string, maxWords int) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var words []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}

		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
		}

		for c := n.FirstChild; c != nil && (maxWords <= 0 || len(words) < maxWords); c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}

	return strings.Join(words, " ")
}
