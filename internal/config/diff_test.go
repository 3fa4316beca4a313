package config_test

import (
	"testing"

	"github.com/aroundmehq/aroundme/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Server.LogLevel = config.LogInfo
	old.Search.RankingPreset = config.PresetBalanced

	d := config.Diff(old, old)
	if d.LogLevelChanged || d.RankingPresetChanged || d.SearchChanged {
		t.Errorf("identical configs should produce an empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Server.LogLevel = config.LogInfo
	updated := &config.Config{}
	updated.Server.LogLevel = config.LogDebug

	d := config.Diff(old, updated)
	if !d.LogLevelChanged {
		t.Fatal("log level change not detected")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("new log level: got %q, want %q", d.NewLogLevel, config.LogDebug)
	}
	if d.RankingPresetChanged || d.SearchChanged {
		t.Errorf("unrelated changes reported: %+v", d)
	}
}

func TestDiff_RankingPreset(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Search.RankingPreset = config.PresetBalanced
	updated := &config.Config{}
	updated.Search.RankingPreset = config.PresetNearby

	d := config.Diff(old, updated)
	if !d.RankingPresetChanged {
		t.Fatal("ranking preset change not detected")
	}
	if d.NewRankingPreset != config.PresetNearby {
		t.Errorf("new preset: got %q, want %q", d.NewRankingPreset, config.PresetNearby)
	}
	if d.SearchChanged {
		t.Error("preset-only change flagged the rest of the search section")
	}
}

func TestDiff_SearchThresholds(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Search.NameThreshold = 82
	updated := &config.Config{}
	updated.Search.NameThreshold = 90

	d := config.Diff(old, updated)
	if !d.SearchChanged {
		t.Fatal("threshold change not detected")
	}
	if d.RankingPresetChanged || d.LogLevelChanged {
		t.Errorf("unrelated changes reported: %+v", d)
	}
}
