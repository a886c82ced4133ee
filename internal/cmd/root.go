package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/raincoat/internal/config"
	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/present"
	"github.com/i474232898/raincoat/internal/weather"
	"github.com/i474232898/raincoat/internal/weather/providers"
)

var (
	// ErrMissingInput is returned when no ZIP code was given.
	ErrMissingInput = errors.New("zip code required")
	// ErrInvalidInput is returned when the ZIP code is not all digits.
	ErrInvalidInput = errors.New("invalid zip code")
)

// deps are the seams the commands reach the outside world through.
type deps struct {
	loadConfig  func() (*config.AppConfig, error)
	newProvider func(cfg *config.AppConfig) (weather.Provider, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig:  config.Load,
		newProvider: providerFromConfig,
	}
}

func providerFromConfig(cfg *config.AppConfig) (weather.Provider, error) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	return providers.New(cfg.Provider, providers.Credentials{
		OpenWeatherAPIKey: cfg.OpenWeatherAPIKey,
		WeatherAPIKey:     cfg.WeatherAPIKey,
		GeocoderAPIKey:    cfg.GeocoderAPIKey,
	}, providers.Options{
		Client:     httpClient,
		MaxRetries: cfg.FetchMaxRetries,
	})
}

type rootOptions struct {
	country  string
	provider string
	json     bool
	verbose  bool
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "raincoat <zip>",
		Short: "Suggest what to wear for the current weather",
		Long: `raincoat looks up the current weather for a ZIP code and suggests pants,
shirt, outerwear, shoes, socks and gloves for the temperature.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, args, opts, d)
		},
	}
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.Flags().StringVarP(&opts.country, "country", "c", "", "Two-letter country code (default: COUNTRY_CODE or us)")
	rootCmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "Weather provider: "+strings.Join(providers.Names, ", "))
	rootCmd.Flags().BoolVar(&opts.json, "json", false, "Print the report and outfit as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log diagnostics to stderr")

	rootCmd.AddCommand(newServeCmd(d))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func runRecommend(cmd *cobra.Command, args []string, opts *rootOptions, d deps) error {
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(cmd.ErrOrStderr())
	}

	zip, err := parseZip(args)
	if err != nil {
		return err
	}

	cfg, err := d.loadConfig()
	if err != nil {
		return err
	}
	if opts.country != "" {
		cfg.CountryCode = strings.ToLower(opts.country)
	}
	if opts.provider != "" {
		cfg.Provider = strings.ToLower(opts.provider)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	provider, err := d.newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.HTTPTimeout+5*time.Second)
	defer cancel()

	service := weather.NewService(provider, nil, 0)
	report, err := service.Current(ctx, weather.Location{Zip: zip, Country: cfg.CountryCode})
	if err != nil {
		return err
	}

	rec := present.NewRecommendation(report, builder)
	if opts.json {
		return present.JSON(cmd.OutOrStdout(), rec)
	}
	return present.Text(cmd.OutOrStdout(), rec)
}

func parseZip(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", ErrMissingInput
	}
	zip := strings.TrimSpace(args[0])
	for _, r := range zip {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidInput, zip)
		}
	}
	// An all-zero code names no place and counts as missing.
	if strings.Trim(zip, "0") == "" {
		return "", ErrMissingInput
	}
	return zip, nil
}

func newBuilder(cfg *config.AppConfig) (*outfit.Builder, error) {
	tables, err := cfg.Tables()
	if err != nil {
		return nil, err
	}
	return outfit.NewBuilder(tables)
}

// run executes the CLI with args and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	rootCmd := newRootCmd(d)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, ErrMissingInput):
		fmt.Fprintln(stdout, "Zip code required.  Exiting...")
	case errors.Is(err, ErrInvalidInput):
		fmt.Fprintln(stdout, "Zip code must be numeric.  Exiting...")
	case errors.Is(err, weather.ErrUpstream):
		fmt.Fprintln(stdout, "Error.  Exiting...")
		log.Printf("ERROR: %v", err)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// Execute runs the CLI and exits the process with its status.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}
