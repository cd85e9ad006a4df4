package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that would override defaults
	envVars := []string{
		"SERVICE_NAME", "ENV", "DATABASE_URL", "NATS_URL",
		"REDIS_ADDR", "REDIS_DB", "AWS_REGION", "LOG_LEVEL", "PORT",
		"QUOTE_TTL", "MONITOR_INTERVAL", "MONITOR_MAX_CONCURRENCY",
		"EXTERNAL_CALL_TIMEOUT", "PG_MAX_CONNS",
		"HTTP_READ_TIMEOUT", "HTTP_BODY_LIMIT",
		"THORNODE_URL", "EVM_CHAIN_ID", "GAS_OVERHEAD_EVM",
		"STATUS_SUBJECT",
	}
	for _, key := range envVars {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServiceName != "swap-broker" {
		t.Errorf("expected ServiceName=swap-broker, got %s", cfg.ServiceName)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %s", cfg.Env)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("expected NATSURL=nats://localhost:4222, got %s", cfg.NATSURL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected RedisAddr=localhost:6379, got %s", cfg.RedisAddr)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("expected RedisDB=0, got %d", cfg.RedisDB)
	}
	if cfg.Port != 9030 {
		t.Errorf("expected Port=9030, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %s", cfg.LogLevel)
	}
	if cfg.QuoteTTL != 15*time.Minute {
		t.Errorf("expected QuoteTTL=15m, got %v", cfg.QuoteTTL)
	}
	if cfg.MonitorInterval != 30*time.Second {
		t.Errorf("expected MonitorInterval=30s, got %v", cfg.MonitorInterval)
	}
	if cfg.MonitorMaxConcurrency != 8 {
		t.Errorf("expected MonitorMaxConcurrency=8, got %d", cfg.MonitorMaxConcurrency)
	}
	if cfg.ExternalCallTimeout != 15*time.Second {
		t.Errorf("expected ExternalCallTimeout=15s, got %v", cfg.ExternalCallTimeout)
	}
	if cfg.PGMaxConns != 10 {
		t.Errorf("expected PGMaxConns=10, got %d", cfg.PGMaxConns)
	}
	if cfg.PGMinConns != 2 {
		t.Errorf("expected PGMinConns=2, got %d", cfg.PGMinConns)
	}
	if cfg.HTTPReadTimeout != 10*time.Second {
		t.Errorf("expected HTTPReadTimeout=10s, got %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPBodyLimit != 1*1024*1024 {
		t.Errorf("expected HTTPBodyLimit=1048576, got %d", cfg.HTTPBodyLimit)
	}
	if cfg.ThornodeURL != "https://thornode.ninerealms.com" {
		t.Errorf("expected default thornode URL, got %s", cfg.ThornodeURL)
	}
	if cfg.EVMChainID != 1 {
		t.Errorf("expected EVMChainID=1, got %d", cfg.EVMChainID)
	}
	if cfg.GasOverheadEVM != "2100000000000000" {
		t.Errorf("expected default EVM gas overhead, got %s", cfg.GasOverheadEVM)
	}
	if cfg.StatusSubject != "evt.swap.quote_status.v1" {
		t.Errorf("expected StatusSubject=evt.swap.quote_status.v1, got %s", cfg.StatusSubject)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "test-broker")
	t.Setenv("ENV", "prod")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "5")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUOTE_TTL", "5m")
	t.Setenv("MONITOR_INTERVAL", "10s")
	t.Setenv("MONITOR_MAX_CONCURRENCY", "16")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "5s")
	t.Setenv("PG_MAX_CONNS", "25")
	t.Setenv("HTTP_READ_TIMEOUT", "30s")
	t.Setenv("HTTP_BODY_LIMIT", "2097152")
	t.Setenv("THORNODE_URL", "http://thornode.test")
	t.Setenv("EVM_CHAIN_ID", "11155111")
	t.Setenv("WALLET_SEED_HEX", "deadbeef")
	t.Setenv("STATUS_SUBJECT", "evt.custom.v1")

	cfg := Load()

	if cfg.ServiceName != "test-broker" {
		t.Errorf("expected ServiceName=test-broker, got %s", cfg.ServiceName)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %s", cfg.Env)
	}
	if cfg.NATSURL != "nats://nats:4222" {
		t.Errorf("expected NATSURL=nats://nats:4222, got %s", cfg.NATSURL)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("expected RedisAddr=redis:6379, got %s", cfg.RedisAddr)
	}
	if cfg.RedisDB != 5 {
		t.Errorf("expected RedisDB=5, got %d", cfg.RedisDB)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %s", cfg.LogLevel)
	}
	if cfg.QuoteTTL != 5*time.Minute {
		t.Errorf("expected QuoteTTL=5m, got %v", cfg.QuoteTTL)
	}
	if cfg.MonitorInterval != 10*time.Second {
		t.Errorf("expected MonitorInterval=10s, got %v", cfg.MonitorInterval)
	}
	if cfg.MonitorMaxConcurrency != 16 {
		t.Errorf("expected MonitorMaxConcurrency=16, got %d", cfg.MonitorMaxConcurrency)
	}
	if cfg.ExternalCallTimeout != 5*time.Second {
		t.Errorf("expected ExternalCallTimeout=5s, got %v", cfg.ExternalCallTimeout)
	}
	if cfg.PGMaxConns != 25 {
		t.Errorf("expected PGMaxConns=25, got %d", cfg.PGMaxConns)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("expected HTTPReadTimeout=30s, got %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPBodyLimit != 2097152 {
		t.Errorf("expected HTTPBodyLimit=2097152, got %d", cfg.HTTPBodyLimit)
	}
	if cfg.ThornodeURL != "http://thornode.test" {
		t.Errorf("expected ThornodeURL=http://thornode.test, got %s", cfg.ThornodeURL)
	}
	if cfg.EVMChainID != 11155111 {
		t.Errorf("expected EVMChainID=11155111, got %d", cfg.EVMChainID)
	}
	if cfg.WalletSeedHex != "deadbeef" {
		t.Errorf("expected WalletSeedHex=deadbeef, got %s", cfg.WalletSeedHex)
	}
	if cfg.StatusSubject != "evt.custom.v1" {
		t.Errorf("expected StatusSubject=evt.custom.v1, got %s", cfg.StatusSubject)
	}
}

func TestGetEnv_Fallback(t *testing.T) {
	t.Setenv("NONEXISTENT_KEY_12345", "")
	val := GetEnv("NONEXISTENT_KEY_12345", "fallback")
	if val != "fallback" {
		t.Errorf("expected fallback, got %s", val)
	}
}

func TestGetEnv_Set(t *testing.T) {
	t.Setenv("TEST_KEY_ABC", "value123")
	val := GetEnv("TEST_KEY_ABC", "fallback")
	if val != "value123" {
		t.Errorf("expected value123, got %s", val)
	}
}

func TestGetEnvInt_InvalidFallsToDefault(t *testing.T) {
	t.Setenv("BAD_INT", "not-a-number")
	val := GetEnvInt("BAD_INT", 42)
	if val != 42 {
		t.Errorf("expected default 42 for invalid int, got %d", val)
	}
}

func TestGetEnvBool_Parses(t *testing.T) {
	t.Setenv("GOOD_BOOL", "true")
	if !GetEnvBool("GOOD_BOOL", false) {
		t.Error("expected true for GOOD_BOOL")
	}

	t.Setenv("BAD_BOOL", "not-a-bool")
	if GetEnvBool("BAD_BOOL", false) {
		t.Error("expected default false for invalid bool")
	}
}

func TestGetEnvDuration_InvalidFallsToDefault(t *testing.T) {
	t.Setenv("BAD_DURATION", "not-a-duration")
	val := GetEnvDuration("BAD_DURATION", 5*time.Second)
	if val != 5*time.Second {
		t.Errorf("expected default 5s for invalid duration, got %v", val)
	}
}
