package ml

import (
	"math"

	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/weather"
)

// Estimator adapts the active model to live weather conditions.
type Estimator struct {
	slot *ModelSlot
}

func NewEstimator(slot *ModelSlot) *Estimator {
	return &Estimator{slot: slot}
}

// Estimate predicts temperature from the live conditions. CO₂ is not reported
// by the weather service and takes the training mean. It returns false when
// no model is available.
func (e *Estimator) Estimate(c weather.CurrentConditions) (float64, bool) {
	if e == nil || e.slot == nil {
		return 0, false
	}
	a := e.slot.Active()
	if a == nil {
		return 0, false
	}
	v := a.Predict(map[string]float64{
		climate.ColHumidity:  c.HumidityPct,
		climate.ColWindSpeed: c.WindSpeedMS,
		climate.ColRainfall:  c.PrecipMm,
		climate.ColPressure:  c.PressureHpa,
	})
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
