package cekunit

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	tokenInputName = "_token"
	tokenMetaName  = "csrf-token"
)

// ExtractCSRFToken returns the CSRF token embedded in a page. The value of
// the first <input name="_token"> wins; the content of the first
// <meta name="csrf-token"> is used when the input is absent or empty.
func ExtractCSRFToken(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", &Error{Kind: KindHTMLParse, Op: "csrf", Err: err}
	}
	if input := findElement(doc, atom.Input, "name", tokenInputName); input != nil {
		if v := strings.TrimSpace(attr(input, "value")); v != "" {
			return v, nil
		}
	}
	if meta := findElement(doc, atom.Meta, "name", tokenMetaName); meta != nil {
		if v := strings.TrimSpace(attr(meta, "content")); v != "" {
			return v, nil
		}
	}
	return "", &Error{Kind: KindCSRFNotFound, Msg: "no _token input or csrf-token meta tag in page"}
}

// findElement walks the tree depth-first and returns the first element of
// type a whose attribute key equals val.
func findElement(n *html.Node, a atom.Atom, key, val string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a && attr(n, key) == val {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a, key, val); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
