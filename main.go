package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cphaensch/dataprof/core"
	"github.com/dc0d/onexit"
)

func main() {
	var (
		chunkSize       = flag.String("chunk-size", "", "minimum byte-source read size, e.g. 64KiB")
		detectionBudget = flag.String("detection-budget", "", "dialect/encoding detection byte budget, e.g. 1MiB")
		checkpointPath  = flag.String("checkpoint", "", "write an lz4-compressed mid-run checkpoint to this path on exit")
		pretty          = flag.Bool("pretty", false, "pretty-print the JSON report")
	)
	flag.Parse()

	cfg, err := core.ParseConfig(*chunkSize, *detectionBudget)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dataprof:", err)
		os.Exit(1)
	}

	var r *os.File
	var totalBytes int64
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "dataprof:", err)
			os.Exit(1)
		}
		defer f.Close()
		if fi, err := f.Stat(); err == nil {
			totalBytes = fi.Size()
		}
		r = f
	} else {
		r = os.Stdin
	}

	pipeline := core.NewPipeline(cfg, totalBytes)

	if *checkpointPath != "" {
		onexit.Register(func() {
			cf, err := os.Create(*checkpointPath)
			if err != nil {
				return
			}
			defer cf.Close()
			_ = pipeline.Checkpoint(cf)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dataprof: profiling ended early:", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(report); encErr != nil {
		fmt.Fprintln(os.Stderr, "dataprof: encoding report:", encErr)
		os.Exit(1)
	}

	if err != nil {
		os.Exit(1)
	}
}
