package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// printError prints an error message
func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}

// printSuccess prints a success message
func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "✅ "+format+"\n", args...)
}

// printWarning prints a warning message
func printWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "⚠️  "+format+"\n", args...)
}

// printInfo prints an info message
func printInfo(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// printHeader prints a section header
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

// printDivider prints a visual divider
func printDivider(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", 70))
}

// printCounts prints per-collection counts in name order.
func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	printInfo(w, "%s:", label)
	for _, name := range names {
		printInfo(w, "  %-18s %d", name, counts[name])
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
