package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/config"
	"github.com/matsen/skinrec/internal/semantic"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify catalog integrity",
	Long: `Verify the JSONL catalog: record validity, duplicate ids, concept
name collisions, special concern mapping targets, orphaned analyses, and
products or concepts still missing embeddings.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status   string       `json:"status"`
	Products int          `json:"products"`
	Concepts int          `json:"concepts"`
	Users    int          `json:"users"`
	Analyses int          `json:"analyses"`
	Issues   []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type   string   `json:"type"`
	ID     string   `json:"id,omitempty"`
	IDs    []string `json:"ids,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Issue types that make check exit non-zero. Missing embeddings only warn.
var fatalIssues = map[string]bool{
	"invalid_concepts":        true,
	"missing_special_concept": true,
	"duplicate_product":       true,
	"duplicate_user":          true,
	"orphaned_analysis":       true,
}

func runCheck(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	mustLoadConfig(repoRoot)
	src := config.Sources(repoRoot)

	products, err := storage.ReadProducts(src.Products)
	if err != nil {
		exitWithError(ExitDataError, "reading products: %v", err)
	}
	concepts, err := storage.ReadConcepts(src.Concepts)
	if err != nil {
		exitWithError(ExitDataError, "reading concepts: %v", err)
	}
	users, err := storage.ReadUsers(src.Users)
	if err != nil {
		exitWithError(ExitDataError, "reading users: %v", err)
	}
	analyses, err := storage.ReadAnalyses(src.Analyses)
	if err != nil {
		exitWithError(ExitDataError, "reading analyses: %v", err)
	}

	var idx *semantic.ProductIndex
	if semantic.Exists(repoRoot) {
		if idx, err = semantic.Load(repoRoot); err != nil {
			exitWithError(ExitError, "loading index: %v", err)
		}
	}

	issues := checkCatalog(products, concepts, users, analyses, idx)
	result := CheckResult{
		Status:   "ok",
		Products: len(products),
		Concepts: len(concepts),
		Users:    len(users),
		Analyses: len(analyses),
		Issues:   issues,
	}
	fatal := false
	for _, is := range issues {
		if fatalIssues[is.Type] {
			fatal = true
		}
	}
	if fatal {
		result.Status = "issues_found"
	}

	if humanOutput {
		fmt.Printf("Checked %d products, %d concepts, %d users, %d analyses\n",
			result.Products, result.Concepts, result.Users, result.Analyses)
		if len(issues) == 0 {
			fmt.Println("No issues found")
		}
		for _, is := range issues {
			fmt.Printf("  %s %s%v %s\n", is.Type, is.ID, is.IDs, is.Reason)
		}
	} else {
		outputJSON(result)
	}

	if fatal {
		os.Exit(ExitDataError)
	}
	return nil
}

// checkCatalog inspects catalog records for integrity problems. idx may be
// nil when no product index has been built.
func checkCatalog(products []catalog.Product, concepts []concept.Concept, users []storage.User, analyses []storage.Analysis, idx *semantic.ProductIndex) []CheckIssue {
	issues := []CheckIssue{}

	if err := concept.ValidateCatalog(concepts); err != nil {
		issues = append(issues, CheckIssue{Type: "invalid_concepts", Reason: err.Error()})
	}
	if err := concept.ValidateSpecialMappings(concepts); err != nil {
		issues = append(issues, CheckIssue{Type: "missing_special_concept", Reason: err.Error()})
	}

	seen := make(map[string]int, len(products))
	for _, p := range products {
		seen[p.ID]++
	}
	for _, id := range sortedKeys(seen) {
		if seen[id] > 1 {
			issues = append(issues, CheckIssue{Type: "duplicate_product", ID: id})
		}
	}

	userIDs := make(map[int64]int, len(users))
	for _, u := range users {
		userIDs[u.ID]++
	}
	for _, u := range users {
		if userIDs[u.ID] > 1 {
			issues = append(issues, CheckIssue{Type: "duplicate_user", ID: strconv.FormatInt(u.ID, 10)})
			userIDs[u.ID] = 1
		}
	}

	orphans := make(map[string]int)
	for _, a := range analyses {
		if _, ok := userIDs[a.UserID]; !ok {
			orphans[strconv.FormatInt(a.UserID, 10)]++
		}
	}
	if len(orphans) > 0 {
		issues = append(issues, CheckIssue{Type: "orphaned_analysis", IDs: sortedKeys(orphans), Reason: "analyses reference unknown users"})
	}

	var noVector []string
	for _, c := range concepts {
		if !c.HasEmbedding() {
			noVector = append(noVector, strconv.Itoa(c.ID))
		}
	}
	if len(noVector) > 0 {
		issues = append(issues, CheckIssue{Type: "concept_without_embedding", IDs: noVector, Reason: "run 'skinrec embed'"})
	}

	if idx != nil {
		var unindexed []string
		for _, p := range products {
			if !idx.Has(p.ID) {
				unindexed = append(unindexed, p.ID)
			}
		}
		if len(unindexed) > 0 {
			sort.Strings(unindexed)
			issues = append(issues, CheckIssue{Type: "product_not_indexed", IDs: unindexed, Reason: "run 'skinrec embed'"})
		}
	}
	return issues
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
