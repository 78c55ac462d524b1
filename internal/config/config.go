package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	EnvFilePath      string
	HTTPPort         string
	DatabaseURL      string
	CatalogPath      string
	InventoryURL     string
	InventoryLogging bool
	ShopifyShop      string
	ShopifyToken     string
	JWTSecret        string
	JWTIssuer        string
	OrderTokenTTL    time.Duration
	AdminPassword    string
	AdminAllowedIPs  []string
	AdminTOTPSecret  string
	OrderCacheTTL    time.Duration
	StockCheckTick   time.Duration
}

// Load reads the environment, after applying the .env file if one is found,
// and rejects a configuration the server can not run with.
func Load() (*Config, error) {
	cfg := read()

	if cfg.InventoryURL == "" {
		return nil, errors.New("INVENTORY_URL is required")
	}
	if cfg.ShopifyShop == "" || cfg.ShopifyToken == "" {
		return nil, errors.New("SHOPIFY_SHOP and SHOPIFY_TOKEN are required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_PASSWORD is required")
	}
	if cfg.AdminTOTPSecret == "" {
		return nil, errors.New("ADMIN_TOTP_SECRET is required for admin login")
	}
	if cfg.StockCheckTick <= 0 {
		return nil, errors.New("STOCK_CHECK_TICK must be positive")
	}
	return cfg, nil
}

// LoadUnchecked reads the same settings as Load without requiring the
// server's secrets. Command line tools use it.
func LoadUnchecked() *Config {
	return read()
}

func read() *Config {
	envPath := resolveEnvPath()
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		envPath = ".env"
		_ = godotenv.Load()
	}

	return &Config{
		EnvFilePath:      getEnv("ENV_FILE_PATH", envPath),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CatalogPath:      getEnv("CATALOG_PATH", "products.toml"),
		InventoryURL:     os.Getenv("INVENTORY_URL"),
		InventoryLogging: getBool("INVENTORY_LOGGING", false),
		ShopifyShop:      os.Getenv("SHOPIFY_SHOP"),
		ShopifyToken:     os.Getenv("SHOPIFY_TOKEN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISSUER", "gacha-summon"),
		OrderTokenTTL:    getDuration("ORDER_TOKEN_TTL", 24*time.Hour),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		AdminAllowedIPs:  splitCSV(os.Getenv("ADMIN_ALLOWED_IPS")),
		AdminTOTPSecret:  os.Getenv("ADMIN_TOTP_SECRET"),
		OrderCacheTTL:    getDuration("ORDER_CACHE_TTL", 5*time.Minute),
		StockCheckTick:   getDuration("STOCK_CHECK_TICK", time.Minute),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return def
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return time.Duration(v) * time.Second
	}
	return def
}

func resolveEnvPath() string {
	if path := os.Getenv("ENV_FILE_PATH"); path != "" {
		return path
	}
	candidates := []string{".env", "local-only/.env"}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
