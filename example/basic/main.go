package main

import (
	"fmt"
	"log"
	"os"

	analyser "github.com/Arrow-air/Flight-Log-Analyser"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: basic <flight.BIN|flight.log>")
	}

	set, stats, err := analyser.Extract(os.Args[1])
	if err != nil {
		log.Fatalf("extract: %v", err)
	}

	fmt.Printf("records=%d extracted=%d no_time=%d dropped=%d malformed=%d\n",
		stats.Records, stats.Extracted, stats.NoTime, stats.Dropped, stats.Malformed)
	for _, g := range set.Groups() {
		fmt.Printf("%-12s %6d samples  fields=%v\n", g.Name, g.Len(), g.Fields)
	}
}
