// Package cpuspec picks inference thread counts from the host CPU topology.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec describes the host processor
type CPUSpec struct {
	BrandName        string
	LogicalCores     int
	PhysicalCores    int
	PerformanceCores int // 0 when the chip is not a known hybrid design
}

// hybridChip maps a brand name pattern to its performance core count
type hybridChip struct {
	pattern *regexp.Regexp
	pCores  int
}

// Hybrid parts where running on efficiency cores slows inference down
var hybridChips = []hybridChip{
	{regexp.MustCompile(`i[79]-1[234]9\d\d`), 8},
	{regexp.MustCompile(`i7-1[234]7\d\d`), 8},
	{regexp.MustCompile(`i5-1[234][456]\d\d`), 6},
	{regexp.MustCompile(`i3-1[234]1\d\d`), 4},
	{regexp.MustCompile(`ultra\s+[79]\s+(?:processor\s+)?2[68]5`), 8},
	{regexp.MustCompile(`ultra\s+7\s+(?:processor\s+)?255`), 8},
	{regexp.MustCompile(`ultra\s+5\s+(?:processor\s+)?235`), 6},
	{regexp.MustCompile(`ultra\s+5\s+(?:processor\s+)?225`), 4},
	{regexp.MustCompile(`apple\s+m1\s+ultra`), 16},
	{regexp.MustCompile(`apple\s+m[23]\s+ultra`), 24},
	{regexp.MustCompile(`apple\s+m[234]\s+max`), 12},
	{regexp.MustCompile(`apple\s+m\d\s+(?:pro|max)`), 8},
	{regexp.MustCompile(`apple\s+m4\b`), 6},
	{regexp.MustCompile(`apple\s+m[123]\b`), 4},
}

// GetCPUSpec inspects the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		PerformanceCores: performanceCores(cpuid.CPU.BrandName),
	}
}

// OptimalThreadCount returns the recommended number of inference threads
func (c CPUSpec) OptimalThreadCount() int {
	available := runtime.NumCPU()
	if c.PerformanceCores > 0 {
		return min(c.PerformanceCores, available)
	}
	if c.LogicalCores > 0 {
		return min(c.LogicalCores, available)
	}
	return available
}

// ThreadCount resolves a configured thread count. Zero picks from the CPU
// topology; anything above the available CPUs is capped.
func ThreadCount(configured int) int {
	available := runtime.NumCPU()
	if configured <= 0 {
		return GetCPUSpec().OptimalThreadCount()
	}
	return min(configured, available)
}

func performanceCores(brandName string) int {
	brand := strings.ToLower(brandName)
	for _, chip := range hybridChips {
		if chip.pattern.MatchString(brand) {
			return chip.pCores
		}
	}
	return 0
}
