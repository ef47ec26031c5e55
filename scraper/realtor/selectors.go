package realtor

import "realtor-scraper/scraper/browser"

const platform = "realtor"

// Listing card markup. Class names, not selectors: cards are looked up by
// class through the browser.Card contract.
const (
	cardClass         = "listingCard"
	detailLinkClass   = "listingDetailsLink"
	addressClass      = "listingCardAddress"
	priceClass        = "listingCardPrice"
	iconConClass      = "listingCardIconCon"
	iconTextClass     = "listingCardIconText"
	iconNumClass      = "listingCardIconNum"
	imageClass        = "listingCardImage"
	propertyKindClass = "listingCardPropertyType"
)

const (
	siteOrigin     = "https://www.realtor.ca"
	detailPrefix   = "/real-estate/"
	mediumResPath  = "/medres/"
	highResPath    = "/highres/"
	cardsPresentAt = "." + cardClass
)

var searchBox = browser.Locator{
	Role: "search box",
	Selectors: []string{
		"#txtMapSearchInput",
		"#textMapSearchInput",
		"input[placeholder*='City']",
		"input[placeholder*='Neighbourhood']",
		"input.mapSearchInput",
		"input[type='search']",
	},
}

var nextPage = browser.Locator{
	Role: "next page",
	Selectors: []string{
		".lnkNextResultsPage",
		"a.lnkNextResultsPage",
		"a[aria-label='Go to the next page']",
		"a[title='Next page']",
	},
}
