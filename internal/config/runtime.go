package config

import (
	"os"
	"strconv"
)

// Defaults used when neither the job file nor the environment set a knob.
const (
	DefaultBatchSize     = 50000
	DefaultBatchCount    = 1
	DefaultMaxErrors     = 1000000
	DefaultChannelBuffer = 1
)

// ResolveRuntime fills unset knobs from the environment (SBLAR_BATCH_SIZE,
// SBLAR_BATCH_COUNT, SBLAR_MAX_ERRORS, SBLAR_CHANNEL_BUFFER) and then from
// the defaults. Values set in r win. Zero and negative values count as
// unset, so a run always has a positive max_errors budget.
func ResolveRuntime(r RuntimeConfig) RuntimeConfig {
	return RuntimeConfig{
		BatchSize:     pickInt(r.BatchSize, getenvInt("SBLAR_BATCH_SIZE", DefaultBatchSize)),
		BatchCount:    pickInt(r.BatchCount, getenvInt("SBLAR_BATCH_COUNT", DefaultBatchCount)),
		MaxErrors:     pickInt(r.MaxErrors, getenvInt("SBLAR_MAX_ERRORS", DefaultMaxErrors)),
		ChannelBuffer: pickInt(r.ChannelBuffer, getenvInt("SBLAR_CHANNEL_BUFFER", DefaultChannelBuffer)),
	}
}

// ChunkRows is the number of rows per chunk: batch size times batch count.
func (r RuntimeConfig) ChunkRows() int {
	return max(r.BatchSize, 1) * max(r.BatchCount, 1)
}

func pickInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
