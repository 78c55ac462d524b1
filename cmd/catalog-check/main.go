package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gacha-summon/internal/catalog"
	"gacha-summon/internal/config"
	"gacha-summon/internal/database"
	"gacha-summon/internal/shopify"
)

func main() {
	cfg := config.LoadUnchecked()
	path := flag.String("catalog", cfg.CatalogPath, "catalog file to check")
	order := flag.String("order", "", "order number to report remaining summons for")
	flag.Parse()

	cat, err := catalog.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("%d products, %d tickets\n\n", len(cat.Products), len(cat.Tickets))
	if err := catalog.WriteDistribution(os.Stdout, cat.Distribution()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *order == "" {
		return
	}
	number, err := shopify.ParseOrderNumber(*order)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "database:", err)
		os.Exit(1)
	}
	defer store.Close()

	o, err := store.GetOrder(ctx, number)
	if err != nil {
		fmt.Fprintf(os.Stderr, "order %s: %v\n", number, err)
		os.Exit(1)
	}
	fmt.Printf("\norder %s claimed by %s\n", o.Number, o.DiscordUsername)
	for _, line := range o.Pulls.View().Messages {
		fmt.Println(line)
	}
}
