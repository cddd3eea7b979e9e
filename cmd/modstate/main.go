// Package main provides a CLI tool for listing and re-enabling mods that a
// failed load disabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cory-johannsen/modstack/internal/config"
	"github.com/cory-johannsen/modstack/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	enable := flag.String("enable", "", "mod id to re-enable; empty lists every recorded mod")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := storage.RequirePersistent(cfg); err != nil {
		log.Fatalf("modstate needs a persistent store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("opening mod state store: %v", err)
	}
	defer closeStore()

	if *enable != "" {
		before, err := store.Get(ctx, *enable)
		if err != nil {
			log.Fatalf("looking up mod %q: %v", *enable, err)
		}
		if err := store.Enable(ctx, *enable); err != nil {
			log.Fatalf("enabling mod: %v", err)
		}
		fmt.Fprintf(os.Stdout, "enabled %s (was disabled=%v: %s) [%s]\n",
			before.ModID, before.Disabled, before.Reason, time.Since(start))
		return
	}

	states, err := store.List(ctx)
	if err != nil {
		log.Fatalf("listing mod state: %v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MOD\tDISABLED\tLOAD\tUPDATED\tREASON")
	for _, st := range states {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%s\t%s\n",
			st.ModID, st.Disabled, st.LoadID, st.UpdatedAt.Format(time.RFC3339), st.Reason)
	}
	_ = tw.Flush()
	fmt.Fprintf(os.Stdout, "%d mod(s) recorded [%s]\n", len(states), time.Since(start))
}
