// Command analyze runs the detection pipeline once for a contract date and prints the report.
//
//	analyze -date 3/31/2017 [-source yahoo|csv|clickhouse] [-out dir] [-config file]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ContractScan/internal/di"
	"ContractScan/internal/domain/models"
	reqmetrics "ContractScan/internal/service/metrics"
	"ContractScan/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "config file path (defaults when empty)")
		date       = fs.String("date", "", "contract date, MM/DD/YYYY")
		out        = fs.String("out", "", "artifact output directory")
		source     = fs.String("source", "", "market data source: yahoo, csv or clickhouse")
		csvDir     = fs.String("csv-dir", "", "input directory for the csv source")
		summary    = fs.Bool("summary", false, "print the compact summary instead of the full report")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *date == "" {
		fmt.Fprintln(stderr, "usage: analyze -date MM/DD/YYYY [-source yahoo|csv|clickhouse] [-out dir] [-config file]")
		return 2
	}
	if _, err := models.ParseContractDate(*date); err != nil {
		fmt.Fprintf(stderr, "analysis failed: %v\n", err)
		return 2
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return 1
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}
	if *source != "" {
		cfg.Source.Type = *source
	}
	if *csvDir != "" {
		cfg.Source.CSVDir = *csvDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid flags: %v\n", err)
		return 2
	}

	svc, cleanup, err := di.InitializeAnalysis(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "initialization failed: %v\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := svc.Run(ctx, reqmetrics.OriginCLI, models.AnalyzeRequest{ContractDate: *date, Refresh: true})
	if err != nil {
		fmt.Fprintf(stderr, "analysis failed: %v\n", err)
		var dfe *models.DateFormatError
		if errors.As(err, &dfe) {
			return 2
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	var v any = report
	if *summary {
		v = report.Summary()
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 1
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	return 0
}
