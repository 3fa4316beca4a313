package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RankingPresetChanged bool
	NewRankingPreset     RankingPreset

	// SearchChanged is true when any search threshold or default changed.
	// Threshold changes apply to newly constructed pipelines only, so the
	// watcher reports them without attempting a live swap.
	SearchChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Search.RankingPreset != new.Search.RankingPreset {
		d.RankingPresetChanged = true
		d.NewRankingPreset = new.Search.RankingPreset
	}

	oldSearch, newSearch := old.Search, new.Search
	oldSearch.RankingPreset, newSearch.RankingPreset = "", ""
	if oldSearch != newSearch {
		d.SearchChanged = true
	}

	return d
}
