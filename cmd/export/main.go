package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/metamindiq/quantum-sync/internal/archive"
	"github.com/metamindiq/quantum-sync/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to session archive database")
	outPath := flag.String("out", "", "output fixture JSON path")
	last := flag.Int("last", 0, "limit to the N oldest snapshots (0 = all)")
	desc := flag.String("desc", "archived session", "fixture description")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: export --db path/to/session.db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *outPath, *last, *desc); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, outPath string, last int, desc string) error {
	store, err := archive.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	snaps, err := store.List(last)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	fixture, err := replay.FromSnapshots(desc, snaps)
	if err != nil {
		return err
	}
	if err := fixture.Save(outPath); err != nil {
		return err
	}

	fmt.Printf("exported %d snapshots (%d steps) to %s\n", len(snaps), len(fixture.Steps), outPath)
	return nil
}

// #endregion export
