// Command suppliers maintains the supply-chain registry file.
//
//	suppliers [-config file] list
//	suppliers [-config file] public -tier 3
//	suppliers [-config file] add -name NAME -ticker SYM -tier N [-location L] [-component C] [-customer C] [-source S] [-notes N]
//	suppliers [-config file] update -name NAME Column=value...
//	suppliers [-config file] delete -name NAME
//	suppliers [-config file] seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"ContractScan/internal/domain/models"
	internalrepo "ContractScan/internal/repository"
	"ContractScan/internal/usecase"
	"ContractScan/pkg/config"
	applogger "ContractScan/pkg/logger"
)

var errUsage = errors.New("usage")

func main() {
	configPath := flag.String("config", "", "config file path (defaults when empty)")
	path := flag.String("file", "", "registry CSV path (overrides suppliers.path)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: suppliers [-config file] [-file registry.csv] list|public|add|update|delete|seed [args]")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *path != "" {
		cfg.Suppliers.Path = *path
	}
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	registry := usecase.NewSupplierRegistry(internalrepo.NewCSVSupplierStore(cfg.Suppliers.Path), l)
	err = dispatch(context.Background(), registry, os.Stdout, flag.Arg(0), flag.Args()[1:])
	switch {
	case errors.Is(err, errUsage):
		flag.Usage()
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, r *usecase.SupplierRegistry, w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "list":
		all, err := r.List(ctx)
		if err != nil {
			return err
		}
		return printSuppliers(w, all)
	case "public":
		fs := flag.NewFlagSet("public", flag.ContinueOnError)
		tier := fs.Int("tier", 3, "tier level 1-4")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		rows, err := r.PublicByTier(ctx, *tier)
		if err != nil {
			return err
		}
		return printSuppliers(w, rows)
	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		var s models.Supplier
		fs.StringVar(&s.CompanyName, "name", "", "company name")
		fs.StringVar(&s.TickerSymbol, "ticker", "N/A", "ticker symbol, N/A when private")
		fs.IntVar(&s.TierLevel, "tier", 0, "tier level 1-4")
		fs.StringVar(&s.Location, "location", "", "location")
		fs.StringVar(&s.ComponentType, "component", "", "component type")
		fs.StringVar(&s.PrimaryCustomer, "customer", "", "primary customer")
		fs.StringVar(&s.Source, "source", "", "source of the information")
		fs.StringVar(&s.AdditionalNotes, "notes", "", "additional notes")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		if err := r.Add(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(w, "added %s\n", s.CompanyName)
		return nil
	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		name := fs.String("name", "", "company name")
		if err := fs.Parse(args); err != nil || *name == "" || fs.NArg() == 0 {
			return errUsage
		}
		fields := make(map[string]string, fs.NArg())
		for _, kv := range fs.Args() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("%w: expected Column=value, got %q", errUsage, kv)
			}
			fields[k] = v
		}
		s, err := r.Update(ctx, *name, fields)
		if err != nil {
			return err
		}
		return printSuppliers(w, []models.Supplier{s})
	case "delete":
		fs := flag.NewFlagSet("delete", flag.ContinueOnError)
		name := fs.String("name", "", "company name")
		if err := fs.Parse(args); err != nil || *name == "" {
			return errUsage
		}
		if err := r.Delete(ctx, *name); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s\n", *name)
		return nil
	case "seed":
		seed, err := internalrepo.SeedSuppliers()
		if err != nil {
			return err
		}
		n, err := r.Seed(ctx, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "seeded %d suppliers\n", n)
		return nil
	}
	return errUsage
}

func printSuppliers(w io.Writer, rows []models.Supplier) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTICKER\tTIER\tLOCATION\tCOMPONENT")
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.CompanyName, s.TickerSymbol, s.TierLevel, s.Location, s.ComponentType)
	}
	return tw.Flush()
}
