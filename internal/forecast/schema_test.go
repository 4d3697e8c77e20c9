package forecast

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

func sampleForecast() *models.RawForecast {
	return &models.RawForecast{
		Cod:     "200",
		Message: 0,
		Cnt:     2,
		City: models.City{
			ID:       5809844,
			Name:     "Seattle",
			Country:  "US",
			Timezone: -25200,
			Coord:    models.Coord{Lon: -122.3321, Lat: 47.6062},
		},
		List: []models.Interval{
			{
				Dt:    1700000000,
				DtTxt: "2023-11-14 21:00:00",
				Main: models.Measurements{
					Temp: 300, FeelsLike: 299, TempMin: 298, TempMax: 301,
					Pressure: 1000, SeaLevel: 1000, GrndLevel: 990, Humidity: 50, TempKf: 0.5,
				},
				Weather:    []models.Condition{{ID: 500, Main: "Rain", Description: "light rain", Icon: "10d"}},
				Wind:       models.Wind{Speed: 3.2, Deg: 240},
				Clouds:     models.Clouds{All: 75},
				Pop:        0.42,
				Visibility: 10000,
			},
			{
				Dt:    1700010800,
				DtTxt: "2023-11-15 00:00:00",
				Main:  models.Measurements{Temp: 310, Pressure: 1020, Humidity: 60},
			},
		},
	}
}

func mustParse(t *testing.T, paths ...string) Selection {
	t.Helper()
	sel, err := ParseSelection(paths...)
	require.NoError(t, err)
	return sel
}

func TestShape_OnlySelectedFields(t *testing.T) {
	out, err := Shape(sampleForecast(), mustParse(t, "tempCAvg,pressureAvg,humidityAvg"))
	require.NoError(t, err)

	assert.Len(t, out, 3)
	assert.InDelta(t, 31.85, out["tempCAvg"], 1e-9)
	assert.InDelta(t, 1010.0, out["pressureAvg"], 1e-9)
	assert.InDelta(t, 55.0, out["humidityAvg"], 1e-9)
	assert.NotContains(t, out, "list")
}

func TestShape_UnselectedResolversDoNotRun(t *testing.T) {
	called := map[string]int{}
	probe := newObject("Probe", "",
		scalar("a", "", func(n int) any { called["a"]++; return n }),
		scalar("b", "", func(n int) any { called["b"]++; return n * 2 }),
	)

	out := probe.Resolve(21, mustParse(t, "b"))

	assert.Equal(t, map[string]any{"b": 42}, out)
	assert.Equal(t, 0, called["a"])
	assert.Equal(t, 1, called["b"])
}

func TestShape_NestedIntervalFields(t *testing.T) {
	out, err := Shape(sampleForecast(), mustParse(t, "list.main.tempF", "list.precipProbability", "list.weather.description"))
	require.NoError(t, err)

	list, ok := out["list"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	first := list[0].(map[string]any)
	assert.Len(t, first, 3)
	assert.Equal(t, map[string]any{"tempF": 80.33}, first["main"])
	assert.InDelta(t, 42.0, first["precipProbability"], 1e-9)
	assert.Equal(t, []any{map[string]any{"description": "light rain"}}, first["weather"])

	second := list[1].(map[string]any)
	assert.Equal(t, []any{}, second["weather"])
}

func TestShape_PerIntervalConversions(t *testing.T) {
	out, err := Shape(sampleForecast(), mustParse(t, "list.main"))
	require.NoError(t, err)

	main := out["list"].([]any)[0].(map[string]any)["main"].(map[string]any)
	assert.Equal(t, 300.0, main["temp"])
	assert.Equal(t, 26.85, main["tempC"])
	assert.Equal(t, 80.33, main["tempF"])
	assert.Equal(t, 25.85, main["feelsLikeC"])
	assert.Equal(t, 24.85, main["minTempC"])
	assert.Equal(t, 27.85, main["maxTempC"])
	assert.Equal(t, 990.0, main["groundLevel"])
	assert.Equal(t, 0.5, main["temp_kf"])
}

func TestShape_WholeObjectSelection(t *testing.T) {
	out, err := Shape(sampleForecast(), mustParse(t, "city"))
	require.NoError(t, err)

	city := out["city"].(map[string]any)
	assert.Equal(t, "Seattle", city["name"])
	assert.Equal(t, "US", city["country"])
	assert.Equal(t, -25200, city["timezone"])
	assert.Equal(t, map[string]any{"lon": -122.3321, "lat": 47.6062}, city["coord"])
}

func TestShape_EmptySelectionReturnsEverything(t *testing.T) {
	out, err := Shape(sampleForecast(), nil)
	require.NoError(t, err)

	for _, f := range Schema.Fields {
		assert.Contains(t, out, f.Name)
	}
}

func TestShape_UnknownField(t *testing.T) {
	_, err := Shape(sampleForecast(), mustParse(t, "city.altitude"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.Contains(t, err.Error(), "City.altitude")
}

func TestShape_SubfieldOnScalar(t *testing.T) {
	_, err := Shape(sampleForecast(), mustParse(t, "cnt.value"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}

func TestShape_EmptyListRendersNullAggregates(t *testing.T) {
	out, err := Shape(&models.RawForecast{Cod: "200"}, mustParse(t, "tempFAvg,tempCAvg,pressureAvg,humidityAvg,pressureData,list"))
	require.NoError(t, err)

	assert.Nil(t, out["tempFAvg"])
	assert.Nil(t, out["tempCAvg"])
	assert.Nil(t, out["pressureAvg"])
	assert.Nil(t, out["humidityAvg"])
	assert.Equal(t, []float64{}, out["pressureData"])
	assert.Equal(t, []any{}, out["list"])

	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tempFAvg":null,"tempCAvg":null,"pressureAvg":null,"humidityAvg":null,"pressureData":[],"list":[]}`, string(body))
}

func TestParseSelection(t *testing.T) {
	sel := mustParse(t, " city.name , list.main.tempF", "cnt", "")
	assert.Equal(t, []string{"city.name", "cnt", "list.main.tempF"}, sel.Paths())

	// Selecting the whole object absorbs narrower paths in either order.
	sel = mustParse(t, "city.name,city")
	assert.Equal(t, []string{"city"}, sel.Paths())
	sel = mustParse(t, "city,city.name")
	assert.Equal(t, []string{"city"}, sel.Paths())

	_, err := ParseSelection("city..name")
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}

func TestSchema_DescribeListsEveryPath(t *testing.T) {
	docs := Schema.Describe()

	paths := make(map[string]string, len(docs))
	for _, d := range docs {
		paths[d.Path] = d.Description
	}
	for _, p := range []string{"cod", "city.coord.lat", "list.main.feelsLikeC", "list.weather.icon", "tempFData"} {
		assert.Contains(t, paths, p)
	}
	assert.Equal(t, "cod", docs[0].Path)

	// Every described path must be accepted by the selection validator.
	for _, d := range docs {
		sel, err := ParseSelection(d.Path)
		require.NoError(t, err)
		assert.NoError(t, Schema.Validate(sel), d.Path)
	}
}
