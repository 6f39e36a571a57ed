package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	analyser "github.com/Arrow-air/Flight-Log-Analyser"
)

func main() {
	cfg, err := analyser.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, results, closeResults := analyser.NewChannelResultSink("fanout", 32)
	defer closeResults()

	rt, err := analyser.NewRuntime(cfg, analyser.WithResultSink(sink))
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	go fanoutWorker("notify", results)

	for _, name := range os.Args[1:] {
		if _, err := rt.Submit(&analyser.Job{UserID: "demo", LogFile: name, Anonymize: true}); err != nil {
			log.Printf("submit %s: %v", name, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, results <-chan analyser.JobResult) {
	for res := range results {
		fmt.Printf("[%s] job %s finished at %s with %d charts\n", name, res.JobID, time.Now().Format(time.RFC3339), len(res.PlotFiles))
	}
}
