package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	return tmp
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("addr = %q", c.Server.Addr)
	}
	if c.Proxy.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.Proxy.Timeout)
	}
	if c.Store.Driver != "toml" {
		t.Errorf("driver = %q", c.Store.Driver)
	}
	if c.Pin.MinLength != 1 || c.Pin.MaxLength != 0 || c.Pin.DigitsOnly {
		t.Errorf("pin policy = %+v", c.Pin)
	}
	if c.Observability.DSN != "" {
		t.Errorf("dsn = %q", c.Observability.DSN)
	}
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("WALLETD_OBSERVABILITY_DSN", "https://key@example.invalid/1")
	t.Setenv("WALLETD_PROXY_TIMEOUT", "250ms")
	t.Setenv("WALLETD_PIN_DIGITS_ONLY", "true")
	t.Setenv("WALLETD_PROXY_RATE_LIMIT_BURST", "3")

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Observability.DSN != "https://key@example.invalid/1" {
		t.Errorf("dsn = %q", c.Observability.DSN)
	}
	if c.Proxy.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v", c.Proxy.Timeout)
	}
	if !c.Pin.DigitsOnly {
		t.Error("digits_only not applied")
	}
	if c.Proxy.RateLimitBurst != 3 {
		t.Errorf("burst = %d", c.Proxy.RateLimitBurst)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.toml")
	content := "[server]\naddr = \"127.0.0.1:9999\"\n\n[store]\ndriver = \"sqlite\"\npath = \"/tmp/w.db\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(nil, file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != "127.0.0.1:9999" || c.Store.Driver != "sqlite" || c.Store.Path != "/tmp/w.db" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Proxy.Timeout != 5*time.Second {
		t.Fatalf("defaults lost: %v", c.Proxy.Timeout)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	tmp := isolate(t)
	if _, err := Load(nil, filepath.Join(tmp, "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("WALLETD_SERVER_ADDR", ":7000")

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("addr", "", "")
	if err := cmd.Flags().Set("addr", ":7001"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	c, err := Load(cmd, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != ":7001" {
		t.Fatalf("addr = %q, want flag value", c.Server.Addr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("WALLETD_PIN_MIN_LENGTH", "6")
	t.Setenv("WALLETD_PIN_MAX_LENGTH", "4")
	if _, err := Load(nil, ""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	tmp := isolate(t)
	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.Proxy.EtherscanAPIKey = "abc"
	c.Proxy.Timeout = 3 * time.Second

	path := filepath.Join(tmp, "nested", "walletd.toml")
	if err := Write(&c, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != permConfig {
		t.Fatalf("perm = %o, want %o", perm, permConfig)
	}

	got, err := Load(nil, path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got != c {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, c)
	}
}
