package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/catalog"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 10 // Default limit for search/similar commands

	NameMaxLen        = 60 // Product names in result lists
	DescriptionMaxLen = 70 // Description lines under a result
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProductSearchResult is a product in search and similar results.
type ProductSearchResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand,omitempty"`
	Category   string  `json:"category,omitempty"`
	Price      float64 `json:"price"`
	Similarity float64 `json:"similarity"`
}

func printSearchResultsHuman(results []ProductSearchResult) {
	for i, r := range results {
		fmt.Printf("%d. [%.2f] %s\n", i+1, r.Similarity, r.ID)
		fmt.Printf("   %s\n", truncateString(r.Name, NameMaxLen))
		fmt.Printf("   %s\n\n", productLine(r.Brand, r.Category, r.Price))
	}
}

// printCandidatesHuman prints blended candidates with their score parts.
func printCandidatesHuman(cands []candidate.Candidate) {
	for i, c := range cands {
		p := c.Product
		fmt.Printf("%d. [%.3f] %s  %s\n", i+1, c.FinalScore, p.ID, truncateString(p.Name, NameMaxLen))
		fmt.Printf("   %s\n", productLine(p.Brand, p.Category, p.Price))
		fmt.Printf("   concern %.3f  profile %.3f\n", c.ConcernScore, c.ProfileScore)
		if !p.InStock() {
			fmt.Println("   (out of stock)")
		}
		fmt.Println()
	}
}

func printProductHuman(p *catalog.Product) {
	fmt.Printf("%s  %s\n", p.ID, p.Name)
	fmt.Printf("   %s\n", productLine(p.Brand, p.Category, p.Price))
	if p.Description != "" {
		fmt.Printf("   %s\n", truncateString(p.Description, DescriptionMaxLen))
	}
}

func productLine(brand, category string, price float64) string {
	var parts []string
	if brand != "" {
		parts = append(parts, brand)
	}
	if category != "" {
		parts = append(parts, category)
	}
	parts = append(parts, fmt.Sprintf("%.2f", price))
	return strings.Join(parts, " | ")
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
