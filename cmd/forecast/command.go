package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/config"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/service"
)

// clientFactory builds the upstream client from loaded configuration.
type clientFactory func(cfg *config.Config) (client.ForecastClient, error)

func openWeatherClient(cfg *config.Config) (client.ForecastClient, error) {
	return client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPICountry, cfg.WeatherAPITimeout)
}

type queryOptions struct {
	fields    []string
	pretty    bool
	configDir string
}

// Command creates the root forecast command.
func Command(newClient clientFactory, logger *zap.Logger) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "forecast <city>",
		Short: "Print the 5 day / 3 hour forecast for a city as JSON",
		Long: `Fetch the forecast for one city and print the selected fields as JSON.
Quote multi-word city names. Field paths are dotted, e.g. tempCAvg,city.name,list.main.tempF;
run "forecast fields" to list them.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd.OutOrStdout(), newClient, logger, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.fields, "fields", "f", nil, "Fields to return (comma-separated dotted paths); all when omitted")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().StringVar(&opts.configDir, "config-dir", ".", "Directory containing .env and config/")

	cmd.AddCommand(fieldsCommand())
	return cmd
}

func fieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List selectable forecast fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range forecast.Schema.Describe() {
				fmt.Fprintf(tw, "%s\t%s\n", d.Path, d.Description)
			}
			return tw.Flush()
		},
	}
}

func runQuery(ctx context.Context, out io.Writer, newClient clientFactory, logger *zap.Logger, city string, opts *queryOptions) error {
	sel, err := forecast.ParseSelection(opts.fields...)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDir(opts.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("forecast client: %w", err)
	}
	svc := service.NewForecastService(c, cfg.CityMinLength, cfg.CityMaxLength)

	corrID := uuid.New().String()
	ctx = observability.WithCorrelationID(ctx, corrID)
	ctx = observability.WithLogger(ctx, logger.With(zap.String("correlation_id", corrID)))

	result, err := svc.Query(ctx, city, sel)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
