package climate

import "time"

// Criteria projects a dataset. Empty strings and nil bounds are unconstrained.
type Criteria struct {
	City    string
	Country string
	Start   *time.Time
	End     *time.Time
}

// SeriesCriteria builds criteria for the tabular export path. When neither
// city nor country is supplied, both are forced to the baseline location.
func SeriesCriteria(city, country string, start, end *time.Time, baseline Location) Criteria {
	if city == "" && country == "" {
		city = baseline.City
		country = baseline.Country
	}
	return Criteria{City: city, Country: country, Start: start, End: end}
}

// CorrelationCriteria builds criteria for the correlation and comparison
// paths. When nothing is supplied only the city defaults to the baseline;
// country stays unconstrained. This differs from SeriesCriteria on purpose.
func CorrelationCriteria(city, country string, start, end *time.Time, baseline Location) Criteria {
	if city == "" && country == "" {
		city = baseline.City
	}
	return Criteria{City: city, Country: country, Start: start, End: end}
}

// Filter returns an independently owned dataset holding the records that
// match c. Date bounds are inclusive; city and country are exact,
// case-sensitive matches. A nil dataset passes through as nil.
func Filter(ds *Dataset, c Criteria) *Dataset {
	if ds == nil {
		return nil
	}

	out := make([]Record, 0, len(ds.records))
	for _, r := range ds.records {
		if c.Country != "" && r.Country != c.Country {
			continue
		}
		if c.City != "" && r.City != c.City {
			continue
		}
		if c.Start != nil && r.Date.Before(*c.Start) {
			continue
		}
		if c.End != nil && r.Date.After(*c.End) {
			continue
		}
		out = append(out, r)
	}

	return NewDataset(out, ds.columnList()...)
}
