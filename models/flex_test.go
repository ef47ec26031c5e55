package models

import (
	"encoding/json"
	"testing"
)

func TestFlexUnmarshal(t *testing.T) {
	tests := []struct {
		in       string
		valid    bool
		numeric  bool
		wantText string
	}{
		{`450000`, true, true, "450000"},
		{`"$450,000"`, true, false, "$450,000"},
		{`"1 + 1"`, true, false, "1 + 1"},
		{`2.5`, true, true, "2.5"},
		{`null`, false, false, ""},
	}

	for _, tt := range tests {
		var f Flex
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if f.Valid() != tt.valid || f.IsNumber() != tt.numeric || f.String() != tt.wantText {
			t.Errorf("Unmarshal(%s) = {valid:%v numeric:%v text:%q}; want {%v %v %q}",
				tt.in, f.Valid(), f.IsNumber(), f.String(), tt.valid, tt.numeric, tt.wantText)
		}
	}
}

func TestFlexRejectsObjects(t *testing.T) {
	var f Flex
	if err := json.Unmarshal([]byte(`{"a":1}`), &f); err == nil {
		t.Error("expected an error for an object value")
	}
}

func TestRawCardFieldsMissingPrice(t *testing.T) {
	var raw RawCardFields
	if err := json.Unmarshal([]byte(`{"natural_key":"X1","address":"1 Main St"}`), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Price.Valid() {
		t.Error("absent price should not be valid")
	}
	out, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back["price"] != nil {
		t.Errorf("absent price should marshal as null, got %v", back["price"])
	}
}

func TestListingWithImageKeepsOriginal(t *testing.T) {
	scraped := "https://cdn.example.com/highres/1.jpg"
	l := &Listing{NaturalKey: "1", Address: "1 Main St", Price: 1, ImageURI: &scraped}

	updated := l.WithImage("https://store.example.com/public/1.jpg")
	if *updated.ImageURI != "https://store.example.com/public/1.jpg" {
		t.Errorf("ImageURI: got %q", *updated.ImageURI)
	}
	if updated.OriginalImageURI == nil || *updated.OriginalImageURI != scraped {
		t.Errorf("OriginalImageURI should keep the scraped URI")
	}
	if *l.ImageURI != scraped {
		t.Error("WithImage must not mutate the receiver")
	}
}
