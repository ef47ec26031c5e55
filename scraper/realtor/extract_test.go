package realtor

import (
	"fmt"
	"testing"

	"realtor-scraper/scraper/browser"
)

func cardFixture(id, price, address string) string {
	return fmt.Sprintf(`<div class="listingCard">
	<a class="listingDetailsLink" href="/real-estate/%s/some-street-toronto">view</a>
	<img class="listingCardImage" src="https://cdn.realtor.ca/listing/TS1/medres/5/%s_1.jpg">
	<div class="listingCardPrice">%s</div>
	<div class="listingCardAddress">%s</div>
	<div class="listingCardIconCon"><div class="listingCardIconNum">3 + 1</div><div class="listingCardIconText">Bedrooms</div></div>
	<div class="listingCardIconCon"><div class="listingCardIconNum">2</div><div class="listingCardIconText">Bathrooms</div></div>
	<div class="listingCardIconCon"><div class="listingCardIconNum">1,200 sqft</div><div class="listingCardIconText">Square Feet</div></div>
</div>`, id, id, price, address)
}

func mustCard(t *testing.T, html string) browser.Card {
	t.Helper()
	c, err := browser.ParseCard(html)
	if err != nil {
		t.Fatalf("ParseCard: %v", err)
	}
	return c
}

func TestExtractFullCard(t *testing.T) {
	card := mustCard(t, cardFixture("29005225", "$899,000", "9 Vandaam Lane, Toronto, ON M5V 2T6"))

	raw, ok := Extractor{}.Extract(card)
	if !ok {
		t.Fatal("expected card to be usable")
	}
	if raw.NaturalKey != "29005225" {
		t.Errorf("NaturalKey = %q", raw.NaturalKey)
	}
	if raw.ListingURI != "https://www.realtor.ca/real-estate/29005225/some-street-toronto" {
		t.Errorf("ListingURI = %q", raw.ListingURI)
	}
	if raw.Address != "9 Vandaam Lane, Toronto, ON M5V 2T6" {
		t.Errorf("Address = %q", raw.Address)
	}
	if !raw.Price.IsNumber() || raw.Price.String() != "899000" {
		t.Errorf("Price = %q (number=%v)", raw.Price.String(), raw.Price.IsNumber())
	}
	if raw.Bedrooms.String() != "3 + 1" {
		t.Errorf("Bedrooms = %q", raw.Bedrooms.String())
	}
	if raw.Bathrooms.String() != "2" {
		t.Errorf("Bathrooms = %q", raw.Bathrooms.String())
	}
	if raw.Area.String() != "1200" {
		t.Errorf("Area = %q", raw.Area.String())
	}
	if raw.ImageURI != "https://cdn.realtor.ca/listing/TS1/highres/5/29005225_1.jpg" {
		t.Errorf("ImageURI = %q", raw.ImageURI)
	}
}

func TestExtractRejectsUnusableCards(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		address string
	}{
		{"no digits in price", "Price on request", "1 King St, Toronto, ON"},
		{"zero price", "$0", "1 King St, Toronto, ON"},
		{"no address", "$450,000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := Extractor{}.Extract(mustCard(t, cardFixture("77", tt.price, tt.address)))
			if ok {
				t.Fatal("expected card to be rejected")
			}
			// other fields survive the missing one
			if raw.NaturalKey != "77" || raw.Bathrooms.String() != "2" {
				t.Errorf("independent fields lost: key=%q baths=%q", raw.NaturalKey, raw.Bathrooms.String())
			}
		})
	}
}

func TestExtractMissingSubElements(t *testing.T) {
	card := mustCard(t, `<div class="listingCard">
		<div class="listingCardPrice">$1,250,000 SOLD</div>
		<div class="listingCardAddress">55 Bloor St W, Toronto, ON</div>
		<div class="listingCardIconCon"><div class="listingCardIconNum">4</div></div>
	</div>`)

	raw, ok := Extractor{}.Extract(card)
	if !ok {
		t.Fatal("price and address present; card should be usable")
	}
	if raw.Price.String() != "1250000" {
		t.Errorf("Price = %q", raw.Price.String())
	}
	if raw.NaturalKey != "" || raw.ListingURI != "" || raw.ImageURI != "" {
		t.Errorf("absent fields should stay empty: %+v", raw)
	}
	if raw.Bedrooms.Valid() {
		t.Error("icon without a label should be ignored")
	}
}

func TestNaturalKeyFromHref(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/real-estate/29005225/9-vandaam-lane", "29005225"},
		{"https://www.realtor.ca/real-estate/E1234567/x", "E1234567"},
		{"/real-estate/42?ref=map", "42"},
		{"/map#view=list", ""},
	}
	for _, tt := range tests {
		if got := naturalKeyFromHref(tt.href); got != tt.want {
			t.Errorf("naturalKeyFromHref(%q) = %q; want %q", tt.href, got, tt.want)
		}
	}
}
