package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.BatchSize != 5000 || cfg.Analysis.MaxFileMB != 100 {
		t.Errorf("analysis defaults = %+v", cfg.Analysis)
	}
	if Exists() {
		t.Error("Exists() true with no file")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.General.Timezone = "Asia/Shanghai"
	cfg.Analysis.IronKeywords = []string{"陨铁", "寒铁"}
	cfg.Daemon.Interval = "30s"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() false after Save")
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General.Timezone != "Asia/Shanghai" || len(got.Analysis.IronKeywords) != 2 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if d, _ := got.PollInterval(); d != 30*time.Second {
		t.Errorf("PollInterval = %v", d)
	}
}

func TestLoadFrom_ValidationJoinsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[general]
log_level = "loud"
timezone = "Mars/Olympus"

[analysis]
batch_size = 0
max_file_mb = 100

[daemon]
interval = "10ms"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "timezone", "batch_size", "daemon.interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadFrom_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("err = %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.LogLevel = "debug"
	if lvl, err := cfg.LogLevel(); err != nil || lvl != slog.LevelDebug {
		t.Errorf("LogLevel = %v, %v", lvl, err)
	}
}

func TestDBPath(t *testing.T) {
	t.Setenv("RUNLEDGER_DB", "")
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	cfg := DefaultConfig()
	if got, want := DBPath(cfg), filepath.Join(data, "runledger", "runledger.db"); got != want {
		t.Errorf("DBPath = %q, want %q", got, want)
	}
	cfg.General.DataDir = "/srv/ledger"
	if got := DBPath(cfg); got != filepath.Join("/srv/ledger", "runledger.db") {
		t.Errorf("DBPath with data_dir = %q", got)
	}
	t.Setenv("RUNLEDGER_DB", "/tmp/x.db")
	if got := DBPath(cfg); got != "/tmp/x.db" {
		t.Errorf("DBPath with env = %q", got)
	}
}

func TestKeywords_FallBackToDefaults(t *testing.T) {
	a := AnalysisConfig{IronKeywords: []string{"寒铁"}}
	kw := a.Keywords()
	if len(kw.Iron) != 1 || kw.Iron[0] != "寒铁" {
		t.Errorf("Iron = %v", kw.Iron)
	}
	if len(kw.Scattered) == 0 {
		t.Error("Scattered should fall back to defaults")
	}
	if a.MaxFileBytes() != 0 {
		t.Error("zero MB should be zero bytes")
	}
	if (AnalysisConfig{MaxFileMB: 2}).MaxFileBytes() != 2<<20 {
		t.Error("MaxFileBytes wrong")
	}
}

func TestPresetDungeons(t *testing.T) {
	ds := PresetDungeons()
	if len(ds) != 11 {
		t.Fatalf("got %d presets, want 11", len(ds))
	}
	if ds[0].Name != "狼牙堡·狼神殿" || ds[10].Name != "冷龙峰" {
		t.Errorf("order = %s .. %s", ds[0].Name, ds[10].Name)
	}
	if len(ds[7].SpecialDrops) != 8 || ds[7].SpecialDrops[3] != "静子（宠物）" {
		t.Errorf("西津渡 drops = %v", ds[7].SpecialDrops)
	}
	ds[0].SpecialDrops[0] = "changed"
	if PresetDungeons()[0].SpecialDrops[0] == "changed" {
		t.Error("PresetDungeons shares backing arrays")
	}
}

func TestSplitDrops(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b，c", []string{"a", "b", "c"}},
		{"[静子（宠物）][鸷（宠物）]", []string{"静子（宠物）", "鸷（宠物）"}},
		{" a , a ,, ", []string{"a"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := SplitDrops(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("SplitDrops(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadPresets(t *testing.T) {
	in := `
dungeons:
  - name: 一之窟
    special_drops: ["甲（宠物）", "乙（家具）"]
`
	ds, err := LoadPresets(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(ds) != 1 || ds[0].Name != "一之窟" || len(ds[0].SpecialDrops) != 2 {
		t.Errorf("got %+v", ds)
	}
}

func TestLoadPresets_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "dungeons:\n  - name: x\n    drops: [a]\n",
		"missing name": "dungeons:\n  - special_drops: [a]\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPresets(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadPresetsFile_Missing(t *testing.T) {
	if _, err := LoadPresetsFile(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestFindDungeon(t *testing.T) {
	catalog := PresetDungeons()
	if d, err := FindDungeon(catalog, "冷龙峰"); err != nil || d.Name != "冷龙峰" {
		t.Errorf("exact = %+v, %v", d, err)
	}
	_, err := FindDungeon(catalog, "冷龙")
	if !errors.Is(err, ErrUnknownDungeon) {
		t.Fatalf("err = %v, want ErrUnknownDungeon", err)
	}
	if !strings.Contains(err.Error(), "冷龙峰") {
		t.Errorf("suggestion missing from %q", err)
	}
	if s := Suggest(catalog, "", 3); s != nil {
		t.Errorf("empty name suggested %v", s)
	}
}
