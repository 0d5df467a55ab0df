package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mkarpov/usagevault/internal/flagx"
	"github.com/mkarpov/usagevault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	DataDir              string         `json:"data_dir"`
	APIBaseURL           string         `json:"api_base_url"`
	PollInterval         timex.Duration `json:"poll_interval"`
	SyncInterval         timex.Duration `json:"sync_interval"`
	SessionCheckInterval timex.Duration `json:"session_check_interval"`
	SummaryCacheTTL      timex.Duration `json:"summary_cache_ttl"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c/-config flags. Missing file path means no JSON is loaded. Zero
// values in the file leave the corresponding Config fields untouched, so a
// partial file only overrides what it names.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.SessionCheckInterval.Duration != 0 {
		cfg.SessionCheckInterval = time.Duration(jc.SessionCheckInterval.Duration)
	}
	if jc.SummaryCacheTTL.Duration != 0 {
		cfg.SummaryCacheTTL = time.Duration(jc.SummaryCacheTTL.Duration)
	}
}
