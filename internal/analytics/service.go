package analytics

import (
	"log"
	"time"

	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/common"
)

// Service serves dashboard analytics from the shared, read-only dataset.
// Every call filters into its own copy and renders on its own canvas, so
// concurrent calls need no coordination.
type Service struct {
	dataset  *climate.Dataset
	baseline climate.Location
}

// NewService creates a new Service. ds may be nil ("no data").
func NewService(ds *climate.Dataset, baseline climate.Location) *Service {
	return &Service{
		dataset:  ds,
		baseline: baseline,
	}
}

// Matrix returns the correlation matrix for the location, or nil when there
// is nothing to correlate.
func (s *Service) Matrix(city, country string) *CorrMatrix {
	ds := climate.Filter(s.dataset, climate.CorrelationCriteria(city, country, nil, nil, s.baseline))
	if ds.Empty() {
		return nil
	}
	return Correlate(ds)
}

// Correlation renders the correlation heatmap for the location. An empty
// string with a nil error means "no data".
func (s *Service) Correlation(city, country string) (string, error) {
	c := climate.CorrelationCriteria(city, country, nil, nil, s.baseline)
	m := s.Matrix(city, country)
	if m == nil {
		log.Printf("DEBUG: no numeric data to correlate for %q/%q", c.City, c.Country)
		return "", nil
	}
	return RenderHeatmap(m, common.FirstNonEmpty(c.City, c.Country, "Global"))
}

// Comparison renders a multi-variable line chart. An empty string with a nil
// error means "no data".
func (s *Service) Comparison(variables []string, city, country string, start, end *time.Time) (string, error) {
	c := climate.CorrelationCriteria(city, country, start, end, s.baseline)
	ds := climate.Filter(s.dataset, c)
	if ds.Empty() {
		log.Printf("DEBUG: no rows to compare for %q/%q", c.City, c.Country)
		return "", nil
	}
	return RenderComparison(ds, variables, common.FirstNonEmpty(c.City, c.Country))
}

// Series exports the filtered table as JSON-safe rows. Never nil.
func (s *Service) Series(city, country string, start, end *time.Time) []climate.SeriesRow {
	return climate.Export(climate.Filter(s.dataset, climate.SeriesCriteria(city, country, start, end, s.baseline)))
}

// Rows returns the number of records in the shared dataset.
func (s *Service) Rows() int {
	return s.dataset.Len()
}
