package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Arrow-air/Flight-Log-Analyser/pkg/analyser"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: callback <uploaded log name>")
	}

	cfg, err := analyser.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(res analyser.JobResult) error {
		if res.Err != nil {
			fmt.Printf("job %s failed: %v\n", res.JobID, res.Err)
			return nil
		}
		fmt.Printf("job %s session=%s log=%s extracted=%d\n", res.JobID, res.SessionID, res.LogFile, res.Stats.Extracted)
		for topic, path := range res.PlotFiles {
			fmt.Printf("  %-10s %s\n", topic, path)
		}
		return nil
	}

	rt, err := analyser.NewRuntime(cfg,
		analyser.WithResultSink(analyser.NewCallbackResultSink("stdout", callback)),
		analyser.WithProgress(func(p analyser.Progress) {
			fmt.Printf("job %s: %s (%d/%d)\n", p.JobID, p.Stage, p.Step, p.Total)
		}),
	)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	if _, err := rt.Submit(&analyser.Job{UserID: "demo", LogFile: os.Args[1]}); err != nil {
		log.Fatalf("submit: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
