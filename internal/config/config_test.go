package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("INVENTORY_URL", "http://inventory.local")
	t.Setenv("SHOPIFY_SHOP", "shop")
	t.Setenv("SHOPIFY_TOKEN", "token")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD", "pw")
	t.Setenv("ADMIN_TOTP_SECRET", "JBSWY3DPEHPK3PXP")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.CatalogPath != "products.toml" || cfg.JWTIssuer != "gacha-summon" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.OrderCacheTTL != 5*time.Minute || cfg.StockCheckTick != time.Minute || cfg.InventoryLogging {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("INVENTORY_LOGGING", "true")
	t.Setenv("ORDER_CACHE_TTL", "90")
	t.Setenv("STOCK_CHECK_TICK", "15s")
	t.Setenv("ADMIN_ALLOWED_IPS", " 10.0.0.0/8, ,127.0.0.1 ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.InventoryLogging || cfg.OrderCacheTTL != 90*time.Second || cfg.StockCheckTick != 15*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !slices.Equal(cfg.AdminAllowedIPs, []string{"10.0.0.0/8", "127.0.0.1"}) {
		t.Fatalf("unexpected ips %q", cfg.AdminAllowedIPs)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CATALOG_PATH=/etc/gacha/products.toml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE_PATH", path)
	t.Setenv("CATALOG_PATH", "")
	os.Unsetenv("CATALOG_PATH")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CatalogPath != "/etc/gacha/products.toml" {
		t.Fatalf("env file not applied, got %q", cfg.CatalogPath)
	}
}

func TestLoadRequired(t *testing.T) {
	for _, key := range []string{"INVENTORY_URL", "SHOPIFY_TOKEN", "JWT_SECRET", "ADMIN_PASSWORD", "ADMIN_TOTP_SECRET"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			if _, err := Load(); err == nil {
				t.Fatalf("expected error without %s", key)
			}
		})
	}
}
