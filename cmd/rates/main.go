package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/rates/internal/application/service"
	"github.com/damon-houk/rates/internal/config"
	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/domain/repository"
	"github.com/damon-houk/rates/internal/infrastructure/api"
	"github.com/damon-houk/rates/internal/infrastructure/cache"
	"github.com/damon-houk/rates/internal/infrastructure/db"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
	"github.com/damon-houk/rates/internal/infrastructure/middleware"
	"github.com/spf13/pflag"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("rates", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	base := fs.StringP("base", "b", "", "The base currency to convert from, required")
	currencies := fs.StringArrayP("currency", "c", nil, "The currency to convert to, required, repeat the option once per currency")
	date := fs.StringP("date", "d", "", "The date of the exchange rates in format YYYY-MM-DD, defaults to today")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: rates -b CODE -c CODE [-c CODE ...] [-d YYYY-MM-DD] N [N ...]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Converts each amount N from the base currency into the matching -c currency.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(separatePositionals(fs, args)); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return usageError(stderr, fs, err.Error())
	}

	if *base == "" {
		return usageError(stderr, fs, "-b/--base is required")
	}
	if len(*currencies) == 0 {
		return usageError(stderr, fs, "at least one -c/--currency is required")
	}

	amounts := make([]float64, 0, fs.NArg())
	for _, arg := range fs.Args() {
		amount, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return usageError(stderr, fs, fmt.Sprintf("invalid amount %q: not a number", arg))
		}
		amounts = append(amounts, amount)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "rates: %v\n", err)
		return exitError
	}

	runID := middleware.NewRunID()
	ctx = middleware.WithRunID(ctx, runID)

	jsonLogger := logger.NewJSONLogger(stderr, cfg.Level())
	defer jsonLogger.Sync()
	log := jsonLogger.WithField("service", "rates")
	logger.SetDefaultLogger(log)

	// Validation happens before the cache or the network is touched
	req, err := entity.NewConversionRequest(*base, *currencies, amounts, *date, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "rates: %v\n", err)
		return exitUsage
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "rates: %v\n", err)
		return exitError
	}
	defer closeStore()

	httpClient := &http.Client{
		Timeout:   cfg.APIConfig.Timeout,
		Transport: middleware.NewLoggingTransport(nil, log),
	}
	client := api.NewRatesAPIClient(cfg.APIConfig.URL, cfg.APIConfig.AccessKey, httpClient, log)

	conversionService := service.NewConversionService(db.NewLoggingRateStore(store, log), client, log)

	if _, err := conversionService.Convert(ctx, req, stdout); err != nil {
		fmt.Fprintf(stderr, "rates: %v\n", err)
		return exitCode(err)
	}

	return exitOK
}

// openStore builds the configured cache backend
func openStore(cfg *config.AppConfig) (repository.RateStore, func(), error) {
	switch cfg.CacheConfig.Backend {
	case config.BackendBadger:
		store, err := db.OpenBadgerRateStore(cfg.CacheConfig.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	default:
		return cache.NewFileRateStore(cfg.CacheConfig.File), func() {}, nil
	}
}

func exitCode(err error) int {
	var vErr *entity.ValidationError
	if errors.As(err, &vErr) {
		return exitUsage
	}
	return exitError
}

func usageError(stderr io.Writer, fs *pflag.FlagSet, msg string) int {
	fmt.Fprintf(stderr, "rates: %s\n", msg)
	fs.Usage()
	return exitUsage
}

// separatePositionals moves positional arguments behind "--" so amounts may
// be interleaved with flags and negative amounts are not read as shorthand
// flags; they are rejected later with a proper validation message
func separatePositionals(fs *pflag.FlagSet, args []string) []string {
	var flags, positionals []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positionals = append(positionals, args[i+1:]...)
			i = len(args)
		case isNumber(arg):
			positionals = append(positionals, arg)
		case len(arg) > 1 && strings.HasPrefix(arg, "-"):
			flags = append(flags, arg)
			if takesValue(fs, arg) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
		default:
			positionals = append(positionals, arg)
		}
	}

	if len(positionals) == 0 {
		return flags
	}
	return append(append(flags, "--"), positionals...)
}

func isNumber(arg string) bool {
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}

// takesValue reports whether arg is a flag whose value is the next argument
func takesValue(fs *pflag.FlagSet, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}

	var flag *pflag.Flag
	switch {
	case strings.HasPrefix(arg, "--"):
		flag = fs.Lookup(arg[2:])
	case len(arg) == 2:
		flag = fs.ShorthandLookup(arg[1:])
	default:
		// -bEUR style: the value is attached
		return false
	}

	return flag != nil && flag.NoOptDefVal == ""
}
