package config

import (
	"os"
	"strconv"
	"strings"
)

type ServerConfig struct {
	Addr string
	// BankCash is the starting bank balance for games created without
	// an explicit cash amount.
	BankCash int
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadServerFromEnv() ServerConfig {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("RAILBANK_ADDR", ":8080")
	}
	return ServerConfig{
		Addr:     addr,
		BankCash: envIntDefault("RAILBANK_BANK_CASH", 12000),
	}
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("RBK_API_BASE_URL", "http://localhost:8080/api"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
