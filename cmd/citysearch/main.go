package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/samirrijal/citysearch/internal/bootstrap"
	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/pkg/config"
	"github.com/samirrijal/citysearch/internal/pkg/logging"
)

const usage = `usage:
  citysearch search <city name>
  citysearch coords <lat> <lon>
  citysearch details <osm_type> <osm_id>`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("citysearch-cli")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// CLI output goes to stdout; keep logs out of it
	logger := logging.New(os.Stderr, cfg.Log.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer svc.Close()

	args := os.Args[2:]
	switch os.Args[1] {
	case "search":
		if len(args) != 1 {
			log.Fatal(usage)
		}
		results, err := svc.Lookup.Search(ctx, args[0])
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		printResults(os.Stdout, results)

	case "coords":
		if len(args) != 2 {
			log.Fatal(usage)
		}
		out, ok, err := svc.Lookup.DetailsAt(ctx, args[0], args[1])
		if err != nil {
			log.Fatalf("coords: %v", err)
		}
		if !ok {
			log.Fatal(usage)
		}
		printDetails(os.Stdout, out.Details)
		if out.DistanceMeters != nil {
			fmt.Printf("Distance: %.2f km\n", *out.DistanceMeters/1000)
		}

	case "details":
		if len(args) != 2 {
			log.Fatal(usage)
		}
		t, err := domain.ParseOSMType(args[0])
		if err != nil {
			log.Fatalf("details: %v", err)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatalf("details: osm_id: %v", err)
		}
		d, err := svc.Lookup.Details(ctx, domain.OSMRef{Type: t, ID: id})
		if err != nil {
			log.Fatalf("details: %v", err)
		}
		printDetails(os.Stdout, d)

	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}
