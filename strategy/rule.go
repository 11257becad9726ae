package strategy

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

// RuleKind selects how a Rule reads a page.
type RuleKind string

const (
	RuleRegex RuleKind = "regex"
	RuleQuery RuleKind = "query"
)

// Rule finds URLs on a page, either by regular expression (capture group 1)
// or by CSS selector reading Attr, or the element text when Attr is empty.
type Rule struct {
	Kind    RuleKind `json:"kind"`
	Pattern string   `json:"pattern"`
	Attr    string   `json:"attr,omitempty"`

	re *regexp.Regexp
}

// Regex builds a case-insensitive regular expression rule. It panics on an invalid pattern.
func Regex(pattern string) Rule {
	return Rule{Kind: RuleRegex, Pattern: pattern, re: regexp.MustCompile("(?i)" + pattern)}
}

// CompileRegex is Regex for patterns that come from user scripts.
func CompileRegex(pattern string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Kind: RuleRegex, Pattern: pattern, re: re}, nil
}

// Query builds a CSS selector rule.
func Query(selector, attr string) Rule {
	return Rule{Kind: RuleQuery, Pattern: selector, Attr: attr}
}

// page parses its HTML at most once across rules.
type page struct {
	html string
	doc  *goquery.Document
	err  error
}

func (p *page) document() (*goquery.Document, error) {
	if p.doc == nil && p.err == nil {
		p.doc, p.err = goquery.NewDocumentFromReader(strings.NewReader(p.html))
	}
	return p.doc, p.err
}

func (r Rule) find(p *page) []string {
	var found []string

	switch r.Kind {
	case RuleRegex:
		for _, m := range r.re.FindAllStringSubmatch(p.html, -1) {
			if len(m) > 1 {
				found = append(found, m[1])
			}
		}
	case RuleQuery:
		doc, err := p.document()
		if err != nil {
			return nil
		}
		doc.Find(r.Pattern).Each(func(_ int, s *goquery.Selection) {
			if r.Attr == "" {
				found = append(found, s.Text())
				return
			}
			if v, ok := s.Attr(r.Attr); ok {
				found = append(found, v)
			}
		})
	}

	return lo.Uniq(lo.Compact(lo.Map(found, func(u string, _ int) string {
		return CleanURL(u)
	})))
}

// Find returns what r matches in body.
func (r Rule) Find(body string) []string {
	return r.find(&page{html: body})
}

// Apply runs rules in order and returns the URLs of the first rule that yields any.
func Apply(rules []Rule, body string) []string {
	p := &page{html: body}
	for _, r := range rules {
		if found := r.find(p); len(found) > 0 {
			return found
		}
	}
	return nil
}

// CleanURL undoes HTML and JavaScript escaping around a captured URL.
func CleanURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.ReplaceAll(u, `\/`, "/")
	u = strings.ReplaceAll(u, `\u0026`, "&")
	return html.UnescapeString(u)
}
