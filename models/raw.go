package models

import "encoding/json"

// UnmarshalJSON accepts both the canonical field names and the ones used by
// earlier scraper exports (mls_number, url, image_url, sqft, city, province).
func (r *RawCardFields) UnmarshalJSON(b []byte) error {
	type canonical RawCardFields
	var aux struct {
		canonical
		MLSNumber    Flex   `json:"mls_number"`
		URL          string `json:"url"`
		ListingURL   string `json:"listing_url"`
		ImageURL     string `json:"image_url"`
		Sqft         Flex   `json:"sqft"`
		City         string `json:"city"`
		Province     string `json:"province"`
		State        string `json:"state"`
		PropertyType string `json:"property_type"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*r = RawCardFields(aux.canonical)
	if r.NaturalKey == "" && aux.MLSNumber.Valid() {
		r.NaturalKey = aux.MLSNumber.String()
	}
	if r.ListingURI == "" {
		r.ListingURI = firstNonEmpty(aux.URL, aux.ListingURL)
	}
	if r.ImageURI == "" {
		r.ImageURI = aux.ImageURL
	}
	if !r.Area.Valid() {
		r.Area = aux.Sqft
	}
	if r.Locality == "" {
		r.Locality = aux.City
	}
	if r.Region == "" {
		r.Region = firstNonEmpty(aux.Province, aux.State)
	}
	if r.PropertyKind == "" {
		r.PropertyKind = aux.PropertyType
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
