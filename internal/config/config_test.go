package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxTokens_TooLow(t *testing.T) {
	cfg := Defaults()
	cfg.Parrot.MaxTokens = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for maxTokens=0")
	}
	if !strings.Contains(err.Error(), "parrot.maxTokens") {
		t.Fatalf("error should name the field by its config path: %v", err)
	}
}

func TestValidate_Concurrency_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.Parrot.Concurrency = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("concurrency=1 should be valid: %v", err)
	}

	cfg.Parrot.Concurrency = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("concurrency=100 should be valid: %v", err)
	}

	cfg.Parrot.Concurrency = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for concurrency=101")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "chatty"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := Defaults()
		cfg.General.LogLevel = level
		if err := Validate(cfg); err != nil {
			t.Fatalf("log level %q should be valid: %v", level, err)
		}
	}
}

func TestValidate_InvalidArchiveConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty dbPath")
	}

	cfg = Defaults()
	cfg.Archive.HistoryLimit = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for historyLimit=-1")
	}
}

func TestValidate_InvalidMetrics(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.Listen = "not an address"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid listen address")
	}

	cfg = Defaults()
	cfg.Metrics.Path = "metrics"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for path without leading slash")
	}
}

func TestValidate_EnabledChannelNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for telegram without token")
	}
	cfg.Channels.Telegram.Token = "123:abc"
	if err := Validate(cfg); err != nil {
		t.Fatalf("telegram with token should be valid: %v", err)
	}

	cfg.Channels.Discord.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for discord without token")
	}
}

func TestValidate_AllowFromMustBeIDs(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.AllowFrom = FlexStringList{"-100123", "someone"}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "someone") {
		t.Fatalf("expected error naming the bad entry, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Parrot.Burst = 0
	cfg.Parrot.PerMinute = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, field := range []string{"parrot.burst", "parrot.perMinute"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("missing %s in %v", field, err)
		}
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Archive.HistoryLimit = 500

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Archive.HistoryLimit != 500 {
		t.Fatalf("expected 500, got %d", loaded.Archive.HistoryLimit)
	}
}

func TestLoadSave_RoundTripYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Defaults()
	original.Parrot.MaxTokens = 250
	original.Channels.Telegram.AllowFrom = FlexStringList{"-1001", "42"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Parrot.MaxTokens != 250 {
		t.Fatalf("expected 250, got %d", loaded.Parrot.MaxTokens)
	}
	if len(loaded.Channels.Telegram.AllowFrom) != 2 || loaded.Channels.Telegram.AllowFrom[0] != "-1001" {
		t.Fatalf("allowFrom mismatch: %v", loaded.Channels.Telegram.AllowFrom)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
general:
  logLevel: debug
channels:
  telegram:
    enabled: true
    token: "123:abc"
    allowFrom: [-1001, "42"]
parrot:
  burst: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.LogLevel != "debug" || cfg.Parrot.Burst != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Parrot.Concurrency != 3 {
		t.Fatalf("unset field should keep default, got %d", cfg.Parrot.Concurrency)
	}
	allow := cfg.Channels.Telegram.AllowFrom
	if len(allow) != 2 || allow[0] != "-1001" || allow[1] != "42" {
		t.Fatalf("allowFrom = %v", allow)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	// Invalid: maxTokens=0
	content := `{
		"parrot": {
			"maxTokens": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for maxTokens=0")
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_PARROTBOT_DB", "/tmp/test-archive.db")
	t.Setenv("TEST_PARROTBOT_TOKEN", "123:secret")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"channels": {"telegram": {"enabled": true, "token": "${TEST_PARROTBOT_TOKEN}"}},
		"archive": {"dbPath": "${TEST_PARROTBOT_DB}"},
		"general": {"logLevel": "${TEST_PARROTBOT_LEVEL:-warn}"}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Archive.DBPath != "/tmp/test-archive.db" {
		t.Fatalf("expected dbPath '/tmp/test-archive.db', got %q", cfg.Archive.DBPath)
	}
	if cfg.Channels.Telegram.Token != "123:secret" {
		t.Fatalf("token not substituted: %q", cfg.Channels.Telegram.Token)
	}
	if cfg.General.LogLevel != "warn" {
		t.Fatalf("default not applied: %q", cfg.General.LogLevel)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "archive.dbPath")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "~/.parrotbot/archive.db" {
		t.Fatalf("expected default db path, got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "channels.cli.username", "polly"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Channels.CLI.Username != "polly" {
		t.Fatalf("expected 'polly', got %q", cfg.Channels.CLI.Username)
	}
}

func TestSetByPath_EmptyValue(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.logFile", ""); err != nil {
		t.Fatalf("set empty value should work: %v", err)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "metrics.enabled", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics.enabled=true")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "parrot.maxTokens", "50"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Parrot.MaxTokens != 50 {
		t.Fatalf("expected 50, got %d", cfg.Parrot.MaxTokens)
	}
}

func TestSetByPath_FloatConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "parrot.perMinute", "7.5"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if cfg.Parrot.PerMinute != 7.5 {
		t.Fatalf("expected 7.5, got %v", cfg.Parrot.PerMinute)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxyz"
	cfg.Channels.Discord.Token = "discord-token-1234567890"

	sanitized := Sanitize(cfg)

	if sanitized.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	if sanitized.Channels.Discord.Token == cfg.Channels.Discord.Token {
		t.Fatal("discord token should be masked")
	}
	// Verify original is untouched
	if cfg.Channels.Telegram.Token != "123456789:ABCdefGHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Channels.Telegram.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Channels.Telegram.Token)
	}
}

// --- Settings ---

func TestSettings_ScalarLeavesOnly(t *testing.T) {
	cfg := Defaults()
	paths := make(map[string]Setting)
	for _, s := range Settings(cfg) {
		paths[s.Path] = s
	}

	for _, expected := range []string{"general.logLevel", "archive.dbPath", "parrot.maxTokens", "metrics.listen", "channels.telegram.allowFrom"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
	for _, branch := range []string{"channels", "channels.telegram", "parrot"} {
		if _, ok := paths[branch]; ok {
			t.Errorf("%s is a section, not a setting", branch)
		}
	}
	if !paths["channels.discord.token"].Secret || paths["channels.discord.guildId"].Secret {
		t.Error("only tokens should be secret")
	}
}

func TestSetByPath_RejectsInvalidValues(t *testing.T) {
	cases := []struct{ path, value string }{
		{"parrot.maxTokens", "0"},
		{"parrot.maxTokens", "many"},
		{"parrot.concurrency", "101"},
		{"general.logLevel", "verbose"},
		{"metrics.listen", "not an address"},
		{"metrics.path", "metrics"},
		{"metrics.enabled", "maybe"},
		{"channels", "x"},
		{"parrot.nope", "1"},
	}
	for _, c := range cases {
		cfg := Defaults()
		if err := SetByPath(cfg, c.path, c.value); err == nil {
			t.Errorf("SetByPath(%q, %q) should fail", c.path, c.value)
		}
		if cfg.Parrot.MaxTokens != Defaults().Parrot.MaxTokens || cfg.General.LogLevel != "info" {
			t.Errorf("SetByPath(%q, %q) modified config on error", c.path, c.value)
		}
	}
}

func TestSetByPath_List(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "channels.telegram.allowFrom", "-1001, 42,"); err != nil {
		t.Fatalf("set list: %v", err)
	}
	if got := cfg.Channels.Telegram.AllowFrom; len(got) != 2 || got[0] != "-1001" || got[1] != "42" {
		t.Fatalf("allowFrom = %v", got)
	}
}

func TestIsSecret(t *testing.T) {
	if !IsSecret("channels.telegram.token") || IsSecret("archive.dbPath") || IsSecret("bogus") {
		t.Fatal("IsSecret mismatch")
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 456.0]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	if list[1] != "123" || list[3] != "456" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_InvalidJSON(t *testing.T) {
	var list FlexStringList
	err := json.Unmarshal([]byte(`not json`), &list)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	// Ensure the var is unset
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8080}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "3000")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:3000"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_NoVarsInInput(t *testing.T) {
	input := `{"key": "value", "number": 42}`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change, got %q", result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Archive.DBPath == "" {
		t.Fatal("dbPath should not be empty")
	}
	if cfg.Channels.Telegram.Enabled {
		t.Fatal("telegram should be disabled until a token is configured")
	}
}
