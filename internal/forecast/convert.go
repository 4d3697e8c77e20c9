package forecast

import "math"

// ToFahrenheit converts a Kelvin value to Fahrenheit, rounded to 2 decimals.
func ToFahrenheit(kelvin float64) float64 {
	return round2(kelvin*9/5 - 459.67)
}

// ToCelsius converts a Kelvin value to Celsius, rounded to 2 decimals.
func ToCelsius(kelvin float64) float64 {
	return round2(kelvin - 273.15)
}

// PercentFromFraction scales a 0-1 fraction to a percentage. Out of range input is not clamped.
func PercentFromFraction(f float64) float64 {
	return f * 100
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// mean returns NaN for an empty input instead of dividing by zero.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
