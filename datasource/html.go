package datasource

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const untitled = "Untitled"

// Elements that never carry page content.
var noiseTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Iframe:   true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

// Content areas tried in order before falling back to <body>.
var contentSelectors = []string{
	"article",
	"main",
	".post-content",
	".entry-content",
	"[itemprop=articleBody]",
	"#content",
}

var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true, atom.Br: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// ExtractText parses an HTML page and returns its title and readable text.
// Text blocks are separated by blank lines.
func ExtractText(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	title = findTitle(doc)
	removeNoise(doc)

	root := findContentArea(doc)
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	}
	if root == nil {
		root = doc
	}

	return title, renderText(root), nil
}

func findTitle(doc *html.Node) string {
	n := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if n == nil {
		return untitled
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	if t := strings.Join(strings.Fields(sb.String()), " "); t != "" {
		return t
	}
	return untitled
}

func removeNoise(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && noiseTags[c.DataAtom]:
			n.RemoveChild(c)
		default:
			removeNoise(c)
		}
		c = next
	}
}

func findContentArea(doc *html.Node) *html.Node {
	for _, sel := range contentSelectors {
		if n := findFirst(doc, selectorMatcher(sel)); n != nil {
			return n
		}
	}
	return nil
}

// selectorMatcher supports tag, #id, .class and [attr=value] selectors.
func selectorMatcher(sel string) func(*html.Node) bool {
	switch {
	case strings.HasPrefix(sel, "#"):
		id := sel[1:]
		return func(n *html.Node) bool { return attr(n, "id") == id }
	case strings.HasPrefix(sel, "."):
		class := sel[1:]
		return func(n *html.Node) bool {
			for _, c := range strings.Fields(attr(n, "class")) {
				if c == class {
					return true
				}
			}
			return false
		}
	case strings.HasPrefix(sel, "["):
		key, val, _ := strings.Cut(strings.Trim(sel, "[]"), "=")
		val = strings.Trim(val, `"`)
		return func(n *html.Node) bool { return attr(n, key) == val }
	default:
		return func(n *html.Node) bool { return n.Data == sel }
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func renderText(root *html.Node) string {
	var (
		blocks []string
		line   strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			blocks = append(blocks, s)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Title || n.DataAtom == atom.Head {
				return
			}
		}

		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()

	return strings.Join(blocks, "\n\n")
}
