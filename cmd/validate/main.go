// Command validate checks the deployable artifacts offline: it loads both
// historical datasets, both classifier artifacts and the feature rule table,
// then verifies that every feature each classifier declares can be resolved
// from the live inputs or from the matching dataset's columns.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -flood-data data/flood_risk_dataset_india.csv \
//	  -cyclone-data data/Cyclone_Risk_Data.csv \
//	  -flood-model models/flood_model.json \
//	  -cyclone-model models/cyclone_model.json \
//	  [-rules rules.yaml]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/hazard-risk-service/internal/config"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/history"
	"github.com/couchcryptid/hazard-risk-service/internal/model"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	floodData := flag.String("flood-data", "data/flood_risk_dataset_india.csv", "flood dataset CSV")
	cycloneData := flag.String("cyclone-data", "data/Cyclone_Risk_Data.csv", "cyclone dataset CSV")
	floodModel := flag.String("flood-model", "models/flood_model.json", "flood classifier artifact")
	cycloneModel := flag.String("cyclone-model", "models/cyclone_model.json", "cyclone classifier artifact")
	rulesFile := flag.String("rules", "", "optional feature rules YAML (default: built-in table)")
	flag.Parse()

	os.Exit(run(*floodData, *cycloneData, *floodModel, *cycloneModel, *rulesFile))
}

func run(floodData, cycloneData, floodModel, cycloneModel, rulesFile string) int {
	fmt.Println("=== Hazard Risk Artifact Validation ===")
	fmt.Println()

	rules, err := config.LoadFeatureRules(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	asm, err := domain.NewAssembler(rules, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: feature rules: %v\n", err)
		return 1
	}

	fmt.Printf("Feature rules (%s):\n", rulesSource(rulesFile))
	for _, r := range asm.Rules() {
		fmt.Printf("  %-24s %-34s %q\n", r.Concept, r.Source, r.Aliases)
	}
	fmt.Println()

	store, err := history.Load(floodData, cycloneData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateClassifier("flood", floodModel, store.FloodTable(), asm),
		validateClassifier("cyclone", cycloneModel, store.CycloneTable(), asm),
		validateOutcomes(store),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d flood, %d cyclone\n", store.FloodTable().Len(), store.CycloneTable().Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func rulesSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// validateClassifier loads an artifact and checks its schema resolves
// against the rule table and the dataset the hazard's nearest record comes
// from.
func validateClassifier(name, path string, table *history.Table, asm *domain.Assembler) *phase {
	p := &phase{name: fmt.Sprintf("%s classifier schema", name)}

	clf, err := model.Load(path)
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}

	schema := clf.FeatureNames()
	if len(schema) == 0 {
		p.errorf("%s declares no features", path)
		return p
	}
	seen := make(map[string]bool, len(schema))
	for _, f := range schema {
		if seen[f] {
			p.errorf("duplicate feature %q", f)
		}
		seen[f] = true
	}

	missing := asm.Unresolved(schema, table.ColumnSet())
	for _, f := range missing {
		p.errorf("feature %q has no rule and is not a column of the %s dataset", f, name)
	}
	if len(missing) > 0 {
		p.errorf("%s dataset columns: %q", name, table.Columns())
	}

	fmt.Printf("%s: %d features %q\n", name, len(schema), schema)
	return p
}

// validateOutcomes reports datasets with no outcome column, which would make
// /historical_stats always report zero occurrences.
func validateOutcomes(store *history.Store) *phase {
	p := &phase{name: "dataset outcome columns"}
	if !store.FloodTable().ColumnSet()[history.FloodOutcomeColumn] {
		p.errorf("flood dataset has no %q column", history.FloodOutcomeColumn)
	}
	if !store.CycloneTable().ColumnSet()[history.CycloneOutcomeColumn] {
		p.errorf("cyclone dataset has no %q column", history.CycloneOutcomeColumn)
	}
	return p
}
