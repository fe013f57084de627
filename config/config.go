package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DebugMode gates verbose logging and the terminal book rendering.
var DebugMode bool

type Config struct {
	WebsocketEndpoint string
	Pairs             []string
	Depth             int
	MetricsAddr       string
}

// Load reads the configuration from the environment, with an optional .env
// file. Every field has a working default: a missing environment is a valid
// single-pair XBT/USD session.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	conf := &Config{
		WebsocketEndpoint: getEnv("KRAKEN_WS_ENDPOINT", "wss://ws.kraken.com"),
		Pairs:             splitPairs(getEnv("BOOK_PAIRS", "XBT/USD")),
		Depth:             getEnvInt("BOOK_DEPTH", 10),
		MetricsAddr:       getEnv("METRICS_ADDR", ":8080"),
	}

	DebugMode = getEnv("DEBUG_MODE", "false") == "true"

	return conf
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid value for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func splitPairs(s string) []string {
	pairs := []string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
