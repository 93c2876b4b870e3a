// Command seedrules loads cleaning rules from a YAML file into the rule store.
// Every rule is compiled before anything is written, so a bad file changes nothing.
// Usage: go run ./cmd/seedrules -file rules/vessel_rules.yaml [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"oceanid/internal/config"
	"oceanid/internal/domain"
	"oceanid/internal/repository/postgres"
	"oceanid/internal/rules"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Name        string                 `yaml:"name"`
	Type        string                 `yaml:"type"`
	Priority    int                    `yaml:"priority"`
	SourceType  string                 `yaml:"source_type"`
	SourceName  string                 `yaml:"source_name"`
	Pattern     string                 `yaml:"pattern"`
	Replacement string                 `yaml:"replacement"`
	Config      map[string]interface{} `yaml:"config"`
	Condition   map[string]interface{} `yaml:"condition"`
	Disabled    bool                   `yaml:"disabled"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	path := flag.String("file", "rules/vessel_rules.yaml", "YAML rule file")
	dryRun := flag.Bool("dry-run", false, "compile the rules without writing them")
	flag.Parse()

	raw, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return fmt.Errorf("parse rule file: %w", err)
	}

	defs := make([]domain.CleaningRule, 0, len(rf.Rules))
	for i, e := range rf.Rules {
		def, err := e.toRule()
		if err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, e.Name, err)
		}
		// IDs only need to be distinct for compilation.
		def.ID = int64(i + 1)
		defs = append(defs, def)
	}
	if _, err := rules.NewSnapshot(defs); err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}
	log.Printf("%d rules compiled from %s", len(defs), *path)
	if *dryRun {
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := postgres.NewDB(context.Background(), &cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := postgres.NewCleaningRuleRepo(db)
	ctx := context.Background()
	for i := range defs {
		defs[i].ID = 0
		if err := repo.Upsert(ctx, &defs[i]); err != nil {
			return fmt.Errorf("upsert %s: %w", defs[i].Name, err)
		}
		log.Printf("  %-28s id=%d version=%d", defs[i].Name, defs[i].ID, defs[i].Version)
	}
	log.Printf("seeded %d rules; POST /api/v1/rules/reload to activate", len(defs))
	return nil
}

func (e ruleEntry) toRule() (domain.CleaningRule, error) {
	if e.Name == "" {
		return domain.CleaningRule{}, fmt.Errorf("name is required")
	}
	kind := domain.RuleType(e.Type)
	if !domain.ValidRuleTypes[kind] {
		return domain.CleaningRule{}, fmt.Errorf("unknown rule type %q", e.Type)
	}
	def := domain.CleaningRule{
		Name:        e.Name,
		RuleType:    kind,
		Pattern:     e.Pattern,
		Replacement: e.Replacement,
		Priority:    e.Priority,
		Enabled:     !e.Disabled,
	}
	if e.SourceType != "" {
		def.SourceType = &e.SourceType
	}
	if e.SourceName != "" {
		def.SourceName = &e.SourceName
	}
	var err error
	if def.Config, err = toJSON(e.Config); err != nil {
		return def, fmt.Errorf("config: %w", err)
	}
	if def.Condition, err = toJSON(e.Condition); err != nil {
		return def, fmt.Errorf("condition: %w", err)
	}
	return def, nil
}

func toJSON(m map[string]interface{}) (json.RawMessage, error) {
	if len(m) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(m)
}
