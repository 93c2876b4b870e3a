// Command rulecheck reports pairs of enabled cleaning rules whose output
// depends on the order they run in. Exits 1 when any conflict is found.
// Usage: go run ./cmd/rulecheck
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"oceanid/internal/config"
	"oceanid/internal/repository/postgres"
	"oceanid/internal/rules"
)

func main() {
	n, err := run()
	if err != nil {
		log.Fatal(err)
	}
	if n > 0 {
		os.Exit(1)
	}
}

func run() (int, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("load config: %w", err)
	}
	db, err := postgres.NewDB(context.Background(), &cfg.DB)
	if err != nil {
		return 0, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	defs, err := postgres.NewCleaningRuleRepo(db).ListEnabled(context.Background())
	if err != nil {
		return 0, err
	}
	snap, err := rules.NewSnapshot(defs)
	if err != nil {
		return 0, fmt.Errorf("compile rules: %w", err)
	}

	conflicts := rules.DetectConflicts(snap, rules.ProbeSamples(snap))
	for _, c := range conflicts {
		fmt.Printf("rules %d and %d disagree on %s=%q: %q (as ordered) vs %q (swapped)\n",
			c.First, c.Second, c.Sample.Column, c.Sample.Value, c.Forward, c.Reverse)
	}
	log.Printf("%d enabled rules, %d conflicting pairs", snap.Len(), len(conflicts))
	return len(conflicts), nil
}
