// sfexstats dumps a persisted call-site profile store: which sites are hot,
// how hot, and when they were last updated.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sfexlang/sfex/internal/profstore"
)

func main() {
	path := flag.String("store", "", "path of the profile store database")
	limit := flag.Int("limit", 0, "show at most N sites (0 = all)")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: sfexstats -store <path> [-limit N]")
		os.Exit(2)
	}

	store, err := profstore.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sfexstats: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rows, err := store.List(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sfexstats: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("no profiled call sites")
		return
	}

	fmt.Printf("%-50s %10s  %s\n", "SITE", "COUNT", "UPDATED")
	for _, r := range rows {
		fmt.Printf("%-50s %10d  %s\n", r.Site, r.Count, r.UpdatedAt)
	}
}
