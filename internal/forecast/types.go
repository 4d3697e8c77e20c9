package forecast

import (
	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

var coordType = newObject("Coordinates", "City coordinate",
	scalar("lon", "Longitude", func(c models.Coord) any { return c.Lon }),
	scalar("lat", "Latitude", func(c models.Coord) any { return c.Lat }),
)

var cityType = newObject("City", "City/location information",
	scalar("id", "City ID", func(c models.City) any { return c.ID }),
	scalar("name", "City name", func(c models.City) any { return c.Name }),
	scalar("country", "Country code (GB, JP etc.)", func(c models.City) any { return c.Country }),
	scalar("timezone", "Shift in seconds from UTC", func(c models.City) any { return c.Timezone }),
	scalar("population", "City population", func(c models.City) any { return c.Population }),
	scalar("sunrise", "Sunrise, unix, UTC", func(c models.City) any { return c.Sunrise }),
	scalar("sunset", "Sunset, unix, UTC", func(c models.City) any { return c.Sunset }),
	object("coord", "City coordinate", coordType, func(c models.City) models.Coord { return c.Coord }),
)

var mainType = newObject("Main", "Main measurements for one interval",
	scalar("temp", "Temperature, Kelvin", func(m models.Measurements) any { return m.Temp }),
	scalar("tempF", "Temperature, Fahrenheit", func(m models.Measurements) any { return ToFahrenheit(m.Temp) }),
	scalar("tempC", "Temperature, Celsius", func(m models.Measurements) any { return ToCelsius(m.Temp) }),
	scalar("feelsLikeF", "Perceived temperature, Fahrenheit", func(m models.Measurements) any { return ToFahrenheit(m.FeelsLike) }),
	scalar("feelsLikeC", "Perceived temperature, Celsius", func(m models.Measurements) any { return ToCelsius(m.FeelsLike) }),
	scalar("minTempF", "Minimum temperature, Fahrenheit", func(m models.Measurements) any { return ToFahrenheit(m.TempMin) }),
	scalar("minTempC", "Minimum temperature, Celsius", func(m models.Measurements) any { return ToCelsius(m.TempMin) }),
	scalar("maxTempF", "Maximum temperature, Fahrenheit", func(m models.Measurements) any { return ToFahrenheit(m.TempMax) }),
	scalar("maxTempC", "Maximum temperature, Celsius", func(m models.Measurements) any { return ToCelsius(m.TempMax) }),
	scalar("pressure", "Pressure on the sea level by default, hPa", func(m models.Measurements) any { return m.Pressure }),
	scalar("seaLevel", "Pressure on the sea level, hPa", func(m models.Measurements) any { return m.SeaLevel }),
	scalar("groundLevel", "Pressure on the ground level, hPa", func(m models.Measurements) any { return m.GrndLevel }),
	scalar("humidity", "Humidity, %", func(m models.Measurements) any { return m.Humidity }),
	scalar("temp_kf", "Provider internal parameter", func(m models.Measurements) any { return m.TempKf }),
)

var conditionType = newObject("Condition", "Weather condition",
	scalar("id", "Weather condition id", func(c models.Condition) any { return c.ID }),
	scalar("main", "Group of weather parameters (Rain, Snow, Extreme etc.)", func(c models.Condition) any { return c.Main }),
	scalar("description", "Weather condition within the group", func(c models.Condition) any { return c.Description }),
	scalar("icon", "Weather icon id", func(c models.Condition) any { return c.Icon }),
)

var windType = newObject("Wind", "Wind",
	scalar("speed", "Wind speed, meter/sec", func(w models.Wind) any { return w.Speed }),
	scalar("deg", "Wind direction, degrees (meteorological)", func(w models.Wind) any { return w.Deg }),
	scalar("gust", "Wind gust, meter/sec", func(w models.Wind) any { return w.Gust }),
)

var cloudsType = newObject("Clouds", "Cloud cover",
	scalar("all", "Cloudiness, %", func(c models.Clouds) any { return c.All }),
)

var intervalType = newObject("Interval", "One 3-hour forecast slot",
	scalar("date", "Time of data forecasted, unix, UTC", func(iv models.Interval) any { return iv.Dt }),
	scalar("dateText", "Time of data forecasted, ISO, UTC", func(iv models.Interval) any { return iv.DtTxt }),
	object("main", "Main measurements", mainType, func(iv models.Interval) models.Measurements { return iv.Main }),
	objectList("weather", "Weather conditions", conditionType, func(iv models.Interval) []models.Condition { return iv.Weather }),
	object("wind", "Wind", windType, func(iv models.Interval) models.Wind { return iv.Wind }),
	object("clouds", "Cloud cover", cloudsType, func(iv models.Interval) models.Clouds { return iv.Clouds }),
	scalar("precipProbability", "Probability of precipitation, %", func(iv models.Interval) any { return PercentFromFraction(iv.Pop) }),
	scalar("visibility", "Average visibility, metres", func(iv models.Interval) any { return iv.Visibility }),
)

// Schema is the root WeatherForecast object, resolved against a *View.
var Schema = newObject("WeatherForecast", "5 day / 3 hour forecast with derived fields",
	scalar("cod", "Provider internal parameter", func(v *View) any { return v.raw.Cod }),
	scalar("message", "Provider internal parameter", func(v *View) any { return v.raw.Message }),
	scalar("cnt", "Number of intervals returned", func(v *View) any { return v.raw.Cnt }),
	object("city", "City/location information", cityType, func(v *View) models.City { return v.raw.City }),
	objectList("list", "Forecast intervals in provider order", intervalType, func(v *View) []models.Interval { return v.raw.List }),
	scalar("tempFAvg", "Average temperature, Fahrenheit", func(v *View) any { return v.TempFAvg() }),
	scalar("tempCAvg", "Average temperature, Celsius", func(v *View) any { return v.TempCAvg() }),
	scalar("pressureAvg", "Average pressure, hPa", func(v *View) any { return v.PressureAvg() }),
	scalar("humidityAvg", "Average humidity, %", func(v *View) any { return v.HumidityAvg() }),
	scalar("pressureData", "Pressure per interval, hPa", func(v *View) any { return v.PressureData() }),
	scalar("humidityData", "Humidity per interval, %", func(v *View) any { return v.HumidityData() }),
	scalar("tempFData", "Temperature per interval, Fahrenheit", func(v *View) any { return v.TempFData() }),
	scalar("tempCData", "Temperature per interval, Celsius", func(v *View) any { return v.TempCData() }),
)

// Shape validates sel and resolves it against raw.
func Shape(raw *models.RawForecast, sel Selection) (map[string]any, error) {
	if err := Schema.Validate(sel); err != nil {
		return nil, err
	}
	return Schema.Resolve(NewView(raw), sel), nil
}
