package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/metamindiq/quantum-sync/internal/archive"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to session archive database")
	last := flag.Int("last", 20, "show N most recent snapshots")
	stateID := flag.String("id", "", "show single snapshot detail")
	commits := flag.Bool("commits", false, "show the commit log instead of snapshots")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/session.db [--last N] [--id state-id] [--commits] [--json]")
		os.Exit(2)
	}

	store, err := archive.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open archive: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *stateID != "":
		err = runDetail(store, *stateID, *jsonOut)
	case *commits:
		err = runCommits(store, *last, *jsonOut)
	default:
		err = runList(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list

type listRow struct {
	StateID   string `json:"state_id"`
	Collapsed bool   `json:"collapsed"`
	Keys      int    `json:"keys"`
	CreatedAt string `json:"created_at"`
}

func runList(store *archive.Store, last int, jsonOut bool) error {
	snaps, err := store.List(last)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		return nil
	}

	rows := make([]listRow, len(snaps))
	for i, s := range snaps {
		rows[i] = listRow{
			StateID:   s.ID,
			Collapsed: s.Collapsed,
			Keys:      len(s.Data),
			CreatedAt: s.Timestamp.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-9s  %5s  %s\n", "State", "Collapsed", "Keys", "Time")
	fmt.Printf("%-12s+-%-9s+-%5s+-%s\n", "------------", "---------", "-----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %-9v  %5d  %s\n", shortID(r.StateID), r.Collapsed, r.Keys, r.CreatedAt)
	}
	return nil
}

// #endregion list

// #region detail

func runDetail(store *archive.Store, id string, jsonOut bool) error {
	snap, err := store.Get(id)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(snap)
	}

	fmt.Printf("State:     %s\n", snap.ID)
	fmt.Printf("Created:   %s\n", snap.Timestamp.Format("2006-01-02T15:04:05.000Z"))
	fmt.Printf("Collapsed: %v\n", snap.Collapsed)
	fmt.Printf("Data:\n")
	data, err := json.MarshalIndent(snap.Data, "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	fmt.Printf("  %s\n", data)
	return nil
}

// #endregion detail

// #region commits

type commitRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Op        string `json:"op"`
	CreatedAt string `json:"created_at"`
}

func runCommits(store *archive.Store, last int, jsonOut bool) error {
	entries, err := store.Commits(last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no commits found")
		return nil
	}

	rows := make([]commitRow, len(entries))
	for i, e := range entries {
		rows[i] = commitRow{
			VersionID: e.VersionID,
			ParentID:  e.ParentID,
			Op:        e.Op,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-12s  %-8s  %s\n", "Version", "Parent", "Op", "Time")
	fmt.Printf("%-12s+-%-12s+-%-8s+-%s\n", "------------", "------------", "--------", "--------------------")
	for _, r := range rows {
		parent := r.ParentID
		if parent == "" {
			parent = "—"
		} else {
			parent = shortID(parent)
		}
		fmt.Printf("%-12s  %-12s  %-8s  %s\n", shortID(r.VersionID), parent, r.Op, r.CreatedAt)
	}
	return nil
}

// #endregion commits

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
