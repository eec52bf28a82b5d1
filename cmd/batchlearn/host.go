package main

import (
	"context"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/hupe1980/batchlearn"
	"github.com/hupe1980/batchlearn/dropout"
)

// defaultThreads prefers the logical core count reported by CPUID.
func defaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return min(n, runtime.GOMAXPROCS(0))
	}
	return runtime.GOMAXPROCS(0)
}

func logHost(ctx context.Context, logger *batchlearn.Logger) {
	logger.InfoContext(ctx, "host",
		"cpu", cpuid.CPU.BrandName,
		"physical_cores", cpuid.CPU.PhysicalCores,
		"logical_cores", cpuid.CPU.LogicalCores,
		"rdrand", cpuid.CPU.Supports(cpuid.RDRAND),
		"hardware_dropout", dropout.HardwareSupported(),
		"gomaxprocs", runtime.GOMAXPROCS(0),
	)
}
