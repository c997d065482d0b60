package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/metamindiq/quantum-sync/internal/registry"
	"github.com/metamindiq/quantum-sync/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *jsonOut))
}

// #endregion main

// #region run

func run(fixturePath string, jsonOut bool) int {
	fixture, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	reg := registry.New(registry.Options{})
	result, err := replay.Replay(fixture, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}

	if jsonOut {
		out := map[string]any{
			"steps":      result.Steps,
			"final_id":   result.FinalVersionID,
			"final_data": result.FinalData,
			"diverged":   result.Diverged,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal result: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Fixture:  %s\n", fixture.Description)
		fmt.Printf("Steps:    %d\n", result.Steps)
		fmt.Printf("Final:    %s\n", result.FinalVersionID)
		fmt.Printf("Diverged: %v\n", result.Diverged)
	}

	if result.Diverged {
		return 1
	}
	return 0
}

// #endregion run
