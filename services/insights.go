package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"realtor-scraper/models"
	"realtor-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ByCountry:          make(map[string]*models.CountryStats),
		ListingsByLocality: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	type sums struct {
		price         float64
		beds, baths   float64
		nBeds, nBaths int
	}
	perCountry := make(map[string]*sums)

	var total float64
	for i, l := range listings {
		total += float64(l.Price)
		if i == 0 || l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if i == 0 || l.Price > report.MaxPrice {
			report.MaxPrice = l.Price
			report.MostExpensive = l
		}
		if l.Locality != nil && *l.Locality != "" {
			report.ListingsByLocality[*l.Locality]++
		}

		cs, ok := report.ByCountry[l.SourceCountry]
		if !ok {
			cs = &models.CountryStats{MinPrice: l.Price, MaxPrice: l.Price}
			report.ByCountry[l.SourceCountry] = cs
			perCountry[l.SourceCountry] = &sums{}
		}
		agg := perCountry[l.SourceCountry]
		cs.Total++
		agg.price += float64(l.Price)
		if l.Price < cs.MinPrice {
			cs.MinPrice = l.Price
		}
		if l.Price > cs.MaxPrice {
			cs.MaxPrice = l.Price
		}
		if l.Bedrooms != nil {
			agg.beds += float64(*l.Bedrooms)
			agg.nBeds++
		}
		if l.Bathrooms != nil {
			agg.baths += float64(*l.Bathrooms)
			agg.nBaths++
		}
	}
	report.AveragePrice = round2(total / float64(len(listings)))

	for country, cs := range report.ByCountry {
		agg := perCountry[country]
		cs.AveragePrice = round2(agg.price / float64(cs.Total))
		if agg.nBeds > 0 {
			cs.AvgBedrooms = round2(agg.beds / float64(agg.nBeds))
		}
		if agg.nBaths > 0 {
			cs.AvgBathrooms = round2(agg.baths / float64(agg.nBaths))
		}
	}

	// Top 5 by price
	sorted := make([]*models.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price > sorted[j].Price
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	report.TopPriced = sorted

	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LISTING INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings stored : \033[1m%d\033[0m\n", r.TotalListings)
	if r.TotalListings > 0 {
		fmt.Fprintf(w, "  Average price         : \033[1;32m$%s\033[0m\n", money(int64(r.AveragePrice)))
		fmt.Fprintf(w, "  Price range           : \033[1;32m$%s - $%s\033[0m\n", money(r.MinPrice), money(r.MaxPrice))
	}
	fmt.Fprintln(w)

	// Per country
	countries := make([]string, 0, len(r.ByCountry))
	for c := range r.ByCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	for _, c := range countries {
		cs := r.ByCountry[c]
		fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", c)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Total       : %d\n", cs.Total)
		fmt.Fprintf(w, "  Avg price   : $%s\n", money(int64(cs.AveragePrice)))
		fmt.Fprintf(w, "  Price range : $%s - $%s\n", money(cs.MinPrice), money(cs.MaxPrice))
		fmt.Fprintf(w, "  Avg beds    : %.2f\n", cs.AvgBedrooms)
		fmt.Fprintf(w, "  Avg baths   : %.2f\n", cs.AvgBathrooms)
		fmt.Fprintln(w)
	}

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", utils.Truncate(r.MostExpensive.Address, 50))
		fmt.Fprintf(w, "  Price : \033[1;31m$%s\033[0m\n", money(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top 5 Highest Priced\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for i, l := range r.TopPriced {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m$%s\033[0m\n",
			i+1, utils.Truncate(l.Address, 38), money(l.Price))
	}
	fmt.Fprintln(w)

	// Listings by Locality
	fmt.Fprintf(w, "\033[1;33m  Listings by Locality\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByLocality) == 0 {
		fmt.Fprintf(w, "  No locality data\n")
	} else {
		type locCount struct {
			loc   string
			count int
		}
		var locs []locCount
		for loc, cnt := range r.ListingsByLocality {
			locs = append(locs, locCount{loc, cnt})
		}
		sort.Slice(locs, func(i, j int) bool {
			if locs[i].count != locs[j].count {
				return locs[i].count > locs[j].count
			}
			return locs[i].loc < locs[j].loc
		})
		for _, lc := range locs {
			bar := strings.Repeat("█", min(lc.count, 40))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", utils.Truncate(lc.loc, 28), bar, lc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// money formats n with thousands separators: 1250000 -> "1,250,000".
func money(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
