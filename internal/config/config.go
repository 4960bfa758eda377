// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Transport
	RedditBaseURL string
	UserAgent     string
	ProxyURLs     []string
	MaxRetries    int
	RetryDelay    time.Duration

	// Politeness
	RateLimitDelay time.Duration
	TermDelay      time.Duration

	// Harvest run
	Subreddit       string
	SearchTerms     []string
	SearchLimit     int
	ThreadIDs       []string
	ExcludedAuthors []string
	MaxCommentDepth int
	OutputDir       string

	// Server mode
	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	proxyURLs, err := parseProxyURLs(os.Getenv("REDDIT_PROXY_URLS"))
	if err != nil {
		return nil, err
	}

	subreddit := getEnv("HARVEST_SUBREDDIT", "ausjdocs")

	terms := splitList(getEnv("HARVEST_SEARCH_TERMS",
		"pharmacist,pharmacy,pharmacists,clinical pharmacist,ward pharmacist"))
	if len(terms) == 0 {
		return nil, fmt.Errorf("HARVEST_SEARCH_TERMS must contain at least one term")
	}

	return &Config{
		RedditBaseURL:   getEnv("REDDIT_BASE_URL", "https://old.reddit.com"),
		UserAgent:       getEnv("REDDIT_USER_AGENT", "Mozilla/5.0"),
		ProxyURLs:       proxyURLs,
		MaxRetries:      getEnvInt("FETCH_MAX_RETRIES", 3),
		RetryDelay:      getEnvDuration("FETCH_RETRY_DELAY", 2*time.Second),
		RateLimitDelay:  getEnvDuration("RATE_LIMIT_DELAY", 2*time.Second),
		TermDelay:       getEnvDuration("TERM_DELAY", 3*time.Second),
		Subreddit:       subreddit,
		SearchTerms:     terms,
		SearchLimit:     getEnvInt("HARVEST_SEARCH_LIMIT", 200),
		ThreadIDs:       splitList(os.Getenv("HARVEST_THREAD_IDS")),
		ExcludedAuthors: splitList(getEnv("EXCLUDED_AUTHORS", "[deleted],AutoModerator")),
		MaxCommentDepth: getEnvInt("MAX_COMMENT_DEPTH", 200),
		OutputDir:       getEnv("OUTPUT_DIR", "."),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
	}, nil
}

// parseProxyURLs validates an optional comma-separated proxy list. An empty
// value means direct connections.
func parseProxyURLs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var proxyURLs []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") && !strings.HasPrefix(p, "socks5://") {
			return nil, fmt.Errorf("invalid proxy URL format, must start with http://, https:// or socks5://: %s", p)
		}

		if _, err := url.Parse(p); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %s: %w", p, err)
		}

		proxyURLs = append(proxyURLs, p)
	}

	return proxyURLs, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
