package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Workers         int
	MaxPending      int
	JobTimeout      time.Duration
	MaxInputSizeMB  int
	MaxJobsPerUser  int
	AssetTTL        time.Duration
	SweepInterval   time.Duration
	DataDir         string
	FFmpegBinary    string
	FFprobeBinary   string
	OpsPort         int
	DiagnosticLimit int
}

func Load() (*Config, error) {
	workers, err := intEnv("WORKERS", 2)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("WORKERS must be at least 1")
	}

	maxPending, err := intEnv("MAX_PENDING_JOBS", workers*4)
	if err != nil {
		return nil, err
	}

	timeoutSec, err := intEnv("JOB_TIMEOUT_SEC", 120)
	if err != nil {
		return nil, err
	}

	maxInputSizeMB, err := intEnv("MAX_INPUT_SIZE_MB", 50)
	if err != nil {
		return nil, err
	}

	maxPerUser, err := intEnv("MAX_JOBS_PER_USER", 0)
	if err != nil {
		return nil, err
	}

	ttlMin, err := intEnv("ASSET_TTL_MIN", 60)
	if err != nil {
		return nil, err
	}

	sweepMin, err := intEnv("SWEEP_INTERVAL_MIN", 10)
	if err != nil {
		return nil, err
	}

	opsPort, err := intEnv("OPS_PORT", 9090)
	if err != nil {
		return nil, err
	}

	diagLimit, err := intEnv("DIAGNOSTIC_LIMIT_BYTES", 4096)
	if err != nil {
		return nil, err
	}

	return &Config{
		Workers:         workers,
		MaxPending:      maxPending,
		JobTimeout:      time.Duration(timeoutSec) * time.Second,
		MaxInputSizeMB:  maxInputSizeMB,
		MaxJobsPerUser:  maxPerUser,
		AssetTTL:        time.Duration(ttlMin) * time.Minute,
		SweepInterval:   time.Duration(sweepMin) * time.Minute,
		DataDir:         getEnv("DATA_DIR", "/data"),
		FFmpegBinary:    getEnv("FFMPEG_BIN", "ffmpeg"),
		FFprobeBinary:   getEnv("FFPROBE_BIN", "ffprobe"),
		OpsPort:         opsPort,
		DiagnosticLimit: diagLimit,
	}, nil
}

// MaxInputSize returns the configured input size cap in bytes.
func (c *Config) MaxInputSize() int64 {
	return int64(c.MaxInputSizeMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
