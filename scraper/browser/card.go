package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Card is a read-only handle on one rendered listing card. Lookups are by
// class name; a missing element is reported through the bool, never an error.
type Card interface {
	Text(class string) (string, bool)
	Attr(class, name string) (string, bool)
	Children(class string) []Card
}

// HTMLCard is a Card backed by a snapshot of the card's outer HTML.
type HTMLCard struct {
	sel *goquery.Selection
}

// ParseCard builds an HTMLCard from an outerHTML fragment.
func ParseCard(outerHTML string) (*HTMLCard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outerHTML))
	if err != nil {
		return nil, fmt.Errorf("browser: parse card: %w", err)
	}
	root := doc.Find("body").Children().First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("browser: parse card: empty fragment")
	}
	return &HTMLCard{sel: root}, nil
}

func (c *HTMLCard) find(class string) *goquery.Selection {
	return c.sel.Find("." + class).First()
}

// Text returns the whitespace-trimmed text of the first element with class.
func (c *HTMLCard) Text(class string) (string, bool) {
	el := c.find(class)
	if el.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(el.Text())
	return text, text != ""
}

// Attr returns attribute name of the first element with class.
func (c *HTMLCard) Attr(class, name string) (string, bool) {
	el := c.find(class)
	if el.Length() == 0 {
		return "", false
	}
	val, ok := el.Attr(name)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

// Children returns every element with class as its own Card.
func (c *HTMLCard) Children(class string) []Card {
	var out []Card
	c.sel.Find("." + class).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &HTMLCard{sel: s})
	})
	return out
}
