package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/recap/internal/cli"
	"github.com/okian/recap/pkg/logger"
)

func main() {
	// The default registry only carries the runtime collectors; recap exports
	// its own system gauges from a dedicated registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	err := cli.Execute(context.Background())
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
