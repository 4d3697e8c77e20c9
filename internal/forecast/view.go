package forecast

import "github.com/kjstillabower/weather-forecast-service/internal/models"

// View is a read-only derived view over a RawForecast. Every method recomputes
// its result from the raw Kelvin values; nothing is memoized.
type View struct {
	raw *models.RawForecast
}

// NewView wraps raw. A nil raw is treated as an empty forecast.
func NewView(raw *models.RawForecast) *View {
	if raw == nil {
		raw = &models.RawForecast{}
	}
	return &View{raw: raw}
}

// Raw returns the underlying payload. Callers must not modify it.
func (v *View) Raw() *models.RawForecast {
	return v.raw
}

// TempFAvg is the mean interval temperature in Fahrenheit. NaN when there are no intervals.
func (v *View) TempFAvg() float64 {
	return ToFahrenheit(mean(v.temps()))
}

// TempCAvg is the mean interval temperature in Celsius. NaN when there are no intervals.
func (v *View) TempCAvg() float64 {
	return ToCelsius(mean(v.temps()))
}

// PressureAvg is the mean pressure in hPa, rounded to 2 decimals.
func (v *View) PressureAvg() float64 {
	return round2(mean(v.PressureData()))
}

// HumidityAvg is the mean humidity in percent, rounded to 2 decimals.
func (v *View) HumidityAvg() float64 {
	return round2(mean(v.HumidityData()))
}

func (v *View) PressureData() []float64 {
	return v.series(func(m models.Measurements) float64 { return m.Pressure })
}

func (v *View) HumidityData() []float64 {
	return v.series(func(m models.Measurements) float64 { return m.Humidity })
}

func (v *View) TempFData() []float64 {
	return v.series(func(m models.Measurements) float64 { return ToFahrenheit(m.Temp) })
}

func (v *View) TempCData() []float64 {
	return v.series(func(m models.Measurements) float64 { return ToCelsius(m.Temp) })
}

// IsDegenerate reports whether aggregates over this forecast are undefined.
func (v *View) IsDegenerate() bool {
	return len(v.raw.List) == 0
}

func (v *View) temps() []float64 {
	return v.series(func(m models.Measurements) float64 { return m.Temp })
}

// series extracts one value per interval in provider order. Always non-nil.
func (v *View) series(pick func(models.Measurements) float64) []float64 {
	out := make([]float64, 0, len(v.raw.List))
	for _, iv := range v.raw.List {
		out = append(out, pick(iv.Main))
	}
	return out
}
