package realtor

import (
	"regexp"
	"strconv"
	"strings"

	"realtor-scraper/models"
	"realtor-scraper/scraper/browser"
)

var firstNumber = regexp.MustCompile(`\d+`)

// Extractor pulls candidate fields out of one listing card. Each field is
// looked up on its own, so a missing bedroom count never costs the price.
type Extractor struct{}

// Extract reads card into a RawCardFields. The bool is false when the card
// lacks a usable price or address, both of which are required downstream.
func (Extractor) Extract(card browser.Card) (models.RawCardFields, bool) {
	var raw models.RawCardFields

	if href, ok := card.Attr(detailLinkClass, "href"); ok {
		raw.ListingURI = absoluteURL(href)
		raw.NaturalKey = naturalKeyFromHref(href)
	}

	if addr, ok := card.Text(addressClass); ok {
		raw.Address = collapseSpaces(addr)
	}

	if text, ok := card.Text(priceClass); ok {
		if n, ok := parseDigits(text); ok {
			raw.Price = models.FlexInt(n)
		}
	}

	for _, icon := range card.Children(iconConClass) {
		label, ok := icon.Text(iconTextClass)
		if !ok {
			continue
		}
		num, ok := icon.Text(iconNumClass)
		if !ok {
			continue
		}
		label = strings.ToLower(label)
		switch {
		case strings.Contains(label, "bedroom"):
			// "3 + 1" stays textual; the normalizer sums it
			raw.Bedrooms = models.FlexString(num)
		case strings.Contains(label, "bathroom"):
			raw.Bathrooms = models.FlexString(num)
		case strings.Contains(label, "square"), strings.Contains(label, "sqft"), strings.Contains(label, "sq ft"):
			if m := firstNumber.FindString(strings.ReplaceAll(num, ",", "")); m != "" {
				if n, err := strconv.ParseInt(m, 10, 64); err == nil {
					raw.Area = models.FlexInt(n)
				}
			}
		}
	}

	if kind, ok := card.Text(propertyKindClass); ok {
		raw.PropertyKind = kind
	}

	if src, ok := card.Attr(imageClass, "src"); ok {
		raw.ImageURI = strings.Replace(src, mediumResPath, highResPath, 1)
	}

	usable := raw.Address != "" && raw.Price.Valid()
	return raw, usable
}

// naturalKeyFromHref returns the segment following /real-estate/ in a
// detail link, e.g. "29005225" for "/real-estate/29005225/9-vandaam-lane".
func naturalKeyFromHref(href string) string {
	_, rest, found := strings.Cut(href, detailPrefix)
	if !found {
		return ""
	}
	key, _, _ := strings.Cut(rest, "/")
	key, _, _ = strings.Cut(key, "?")
	return strings.TrimSpace(key)
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return siteOrigin + href
	}
	return href
}

// parseDigits keeps only the digits of s ("$1,250,000 SOLD" -> 1250000).
// It reports false when no digits remain or the result is not positive.
func parseDigits(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
