package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration
type Config struct {
	Addr               string
	LogLevel           slog.Level
	LogFormat          string
	Token              string
	TokenAutoGenerated bool

	Driver       string
	PrinterAddr  string
	PaperWidth   string
	SimFailures  []string
	PhaseTimeout time.Duration
	LogCapacity  int

	RateLimit float64
	RateBurst int
}

const (
	defaultAddr       = ":9757"
	defaultLogFormat  = "text"
	defaultDriver     = "sim"
	defaultPaperWidth = "80mm"
	defaultRateLimit  = 5.0
	defaultRateBurst  = 10
	tokenBytes        = 16
)

// ParseCfg reads configuration from command-line flags, then the environment
// (including a .env file in the working directory), then defaults.
func ParseCfg() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}

	fs := flag.CommandLine
	addr := fs.String("addr", defaultAddr, "listen address")
	logLevel := fs.String("log_level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log_format", defaultLogFormat, "log format: text or json")
	token := fs.String("token", "", "bearer token; generated when empty")
	driver := fs.String("driver", defaultDriver, "printer driver: sim or escpos")
	printerAddr := fs.String("printer_addr", "", "host:port of an ESC/POS printer")
	paperWidth := fs.String("paper_width", defaultPaperWidth, "paper width reported for the device")
	simFail := fs.String("sim_fail", "", "comma separated sim driver calls that fail")
	phaseTimeout := fs.String("phase_timeout", "0", "timeout of each printer call, 0 for none")
	logCapacity := fs.String("log_capacity", "0", "activity log entries kept, 0 for unbounded")
	rateLimit := fs.String("rate_limit", strconv.FormatFloat(defaultRateLimit, 'f', -1, 64), "action requests per second per client")
	rateBurst := fs.String("rate_burst", strconv.Itoa(defaultRateBurst), "action request burst per client")

	fs.Parse(os.Args[1:])

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// pick returns the flag when given on the command line, then the env var, then the flag default
	pick := func(name, envKey string, value *string) string {
		if set[name] {
			return *value
		}
		if v, ok := os.LookupEnv(envKey); ok && v != "" {
			return v
		}
		return *value
	}

	cfg := &Config{
		Addr:        pick("addr", "ADDR", addr),
		LogLevel:    getLogLevel(pick("log_level", "LOG_LEVEL", logLevel)),
		LogFormat:   strings.ToLower(pick("log_format", "LOG_FORMAT", logFormat)),
		Token:       pick("token", "TOKEN", token),
		Driver:      strings.ToLower(pick("driver", "DRIVER", driver)),
		PrinterAddr: pick("printer_addr", "PRINTER_ADDR", printerAddr),
		PaperWidth:  pick("paper_width", "PAPER_WIDTH", paperWidth),
		SimFailures: splitList(pick("sim_fail", "SIM_FAIL", simFail)),
	}
	cfg.PhaseTimeout = parseDuration(pick("phase_timeout", "PHASE_TIMEOUT", phaseTimeout), 0)
	cfg.LogCapacity = parseNonNegativeInt(pick("log_capacity", "LOG_CAPACITY", logCapacity), 0)
	cfg.RateLimit = parsePositiveFloat(pick("rate_limit", "RATE_LIMIT", rateLimit), defaultRateLimit)
	cfg.RateBurst = parseNonNegativeInt(pick("rate_burst", "RATE_BURST", rateBurst), defaultRateBurst)

	if cfg.LogFormat != "json" {
		cfg.LogFormat = defaultLogFormat
	}

	if cfg.Token == "" {
		cfg.Token = generateRandomToken(tokenBytes)
		cfg.TokenAutoGenerated = true
	}

	return cfg
}

// NewLogger builds the process logger described by the config
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func generateRandomToken(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// parseDuration accepts Go durations and bare seconds
func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func parseNonNegativeInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parsePositiveFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}
