package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	printBanner(os.Stderr, config, logger)
}

func printBanner(w io.Writer, config *Config, logger *Logger) {
	info := GetVersionInfo()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 64
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` __   __ ___  ___  ___     _    _  _    _    _ __   __ ___  _____`,
		` \ \ / /|_ _|| _ \| __|   /_\  | \| |  /_\  | |\ \ / // __||_   _|`,
		`  \ V /  | | |   /| _|   / _ \ | .' | / _ \ | |_\ V / \__ \  | |`,
		`   \_/  |___||_|_\|___| /_/ \_\|_|\_|/_/ \_\|____|_|  |___/  |_|`,
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Technical Indicators & AI Stock Insight%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "\n%s\n\n", hr)

	kvPad := 16
	kvLines := [][2]string{
		{"Version", info.Version},
		{"Build", info.Build},
		{"Commit", info.Commit},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Data Source", config.Market.Provider},
		{"Lookback", config.Market.Lookback},
		{"Model", config.Clients.Gemini.Model},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)

	logger.Info().
		Str("version", info.Version).
		Str("build", info.Build).
		Str("commit", info.Commit).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("provider", config.Market.Provider).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  VIRE ANALYST SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
