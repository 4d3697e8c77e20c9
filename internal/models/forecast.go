package models

// RawForecast is the unmodified OpenWeatherMap 5-day/3-hour forecast payload.
// It is request-scoped and must not be mutated once fetched.
type RawForecast struct {
	Cod     string     `json:"cod"`
	Message int        `json:"message"`
	Cnt     int        `json:"cnt"`
	City    City       `json:"city"`
	List    []Interval `json:"list"`
}

type City struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	Timezone   int    `json:"timezone"` // Shift in seconds from UTC
	Coord      Coord  `json:"coord"`
	Population int    `json:"population"`
	Sunrise    int64  `json:"sunrise"`
	Sunset     int64  `json:"sunset"`
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Interval is one 3-hour forecast slot. Provider order is chronological.
type Interval struct {
	Dt         int64        `json:"dt"`
	DtTxt      string       `json:"dt_txt"`
	Main       Measurements `json:"main"`
	Weather    []Condition  `json:"weather"`
	Wind       Wind         `json:"wind"`
	Clouds     Clouds       `json:"clouds"`
	Pop        float64      `json:"pop"` // 0-1 fraction
	Visibility int          `json:"visibility"`
}

// Measurements carries temperatures in Kelvin (provider default units).
type Measurements struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	SeaLevel  float64 `json:"sea_level"`
	GrndLevel float64 `json:"grnd_level"`
	Humidity  float64 `json:"humidity"`
	TempKf    float64 `json:"temp_kf"`
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust"`
}

type Clouds struct {
	All int `json:"all"`
}
