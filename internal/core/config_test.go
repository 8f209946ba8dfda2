package core

import (
	"testing"
	"time"

	"audiomab/internal/i18n"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.App.Language != i18n.DefaultLanguage {
		t.Errorf("Expected default language to be %s, got %s", i18n.DefaultLanguage, config.App.Language)
	}

	if config.Resolver.LocalEnabled {
		t.Error("Expected local resolver to be disabled by default")
	}

	if config.Resolver.SearchTimeout != 8*time.Second {
		t.Errorf("Expected search timeout 8s, got %v", config.Resolver.SearchTimeout)
	}

	if config.Resolver.VideoTimeout != 10*time.Second {
		t.Errorf("Expected video timeout 10s, got %v", config.Resolver.VideoTimeout)
	}

	if config.Resolver.PlaylistTimeout != 15*time.Second {
		t.Errorf("Expected playlist timeout 15s, got %v", config.Resolver.PlaylistTimeout)
	}

	if config.Resolver.StreamTimeout != 20*time.Minute {
		t.Errorf("Expected stream timeout 20m, got %v", config.Resolver.StreamTimeout)
	}

	if config.App.CatalogMaxSongs != DefaultCatalogMaxSongs {
		t.Errorf("Expected catalog cap %d, got %d", DefaultCatalogMaxSongs, config.App.CatalogMaxSongs)
	}

	if config.Storage.Path != "" {
		t.Errorf("Expected in-memory storage by default, got %q", config.Storage.Path)
	}
}

func TestDefaultConfig_InstancesAreCopies(t *testing.T) {
	config := DefaultConfig()
	config.Resolver.InvidiousInstances[0] = "https://changed.example"

	if DefaultInvidiousInstances[0] == "https://changed.example" {
		t.Error("DefaultConfig() must not share the default instance slice")
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultSearchTimeoutSecs >= DefaultVideoTimeoutSecs {
		t.Error("Search timeout should be shorter than video timeout")
	}

	if DefaultVideoTimeoutSecs >= DefaultPlaylistTimeoutSecs {
		t.Error("Video timeout should be shorter than playlist timeout")
	}

	if DefaultSearchLimit > MaxSearchLimit {
		t.Error("DefaultSearchLimit should not exceed MaxSearchLimit")
	}
}
