package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"quotebot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== QuoteBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit instruments and bars")
		fmt.Println("3) Edit simulator, notifications and risk")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch paper bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editMarket(reader, cfg)
		case "3":
			editTrading(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchPaper(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Println("Instruments:", strings.Join(cfg.Stream.Instruments, ", "))
	fmt.Printf("Stream: %s (timeout %s, heartbeat %s)\n", cfg.Stream.URL, cfg.Stream.ReadTimeout(), cfg.Stream.Heartbeat())
	fmt.Printf("Bar duration: %s | history %d ticks / %d bars\n", cfg.Bars.Duration(), cfg.Bars.TickCapacity, cfg.Bars.BarCapacity)
	fmt.Println("Strategies:", strings.Join(cfg.Strategy.Modes, ", "))
	fmt.Println("Sessions (UTC):", strings.Join(cfg.Strategy.Sessions, ", "))
	fmt.Printf("Simulator enabled: %t | trail factor %.2f\n", cfg.Simulator.Enabled, cfg.Simulator.TrailFactor)
	webhook := cfg.Notify.WebhookURL
	if webhook == "" {
		webhook = "(log only)"
	}
	fmt.Printf("Webhook: %s | amount %.2f\n", webhook, cfg.Notify.Amount)
	fmt.Printf("Per-trade notional cap: $%.2f\n", cfg.Risk.MaxNotionalPerTrade)
}

func editMarket(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Instruments / Bars ---")
	cfg.Stream.Instruments = promptList(reader, "instruments", cfg.Stream.Instruments)
	cfg.Strategy.Modes = promptList(reader, "strategy modes", cfg.Strategy.Modes)
	cfg.Strategy.Sessions = promptList(reader, "trading sessions HH:MM-HH:MM", cfg.Strategy.Sessions)
	cfg.Bars.DurationSecs = promptFloat(reader, "Bar duration (s)", cfg.Bars.DurationSecs)
	cfg.Bars.BarCapacity = int(promptFloat(reader, "Bar history capacity", float64(cfg.Bars.BarCapacity)))
}

func editTrading(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Simulator / Notifications / Risk ---")
	cfg.Simulator.Enabled = promptBool(reader, "Simulate orders", cfg.Simulator.Enabled)
	cfg.Simulator.TrailFactor = promptPercent(reader, "Trailing offset (% of TP distance)", cfg.Simulator.TrailFactor)
	fmt.Printf("Webhook URL [%s] (\"-\" clears): ", cfg.Notify.WebhookURL)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Notify.WebhookURL = strings.TrimSpace(line)
		if cfg.Notify.WebhookURL == "-" {
			cfg.Notify.WebhookURL = ""
		}
	}
	cfg.Notify.Amount = promptFloat(reader, "Order amount", cfg.Notify.Amount)
	cfg.Notify.MarketClosed = promptBool(reader, "Close at end of week", cfg.Notify.MarketClosed)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (0 = off)", cfg.Risk.MaxNotionalPerTrade)
}

func promptList(reader *bufio.Reader, label string, current []string) []string {
	fmt.Printf("Current %s: %s\n", label, strings.Join(current, ", "))
	fmt.Print("Enter comma-separated values (blank to keep): ")
	line, _ := reader.ReadString('\n')
	if strings.TrimSpace(line) == "" {
		return current
	}
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(line), ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func promptBool(reader *bufio.Reader, label string, current bool) bool {
	fmt.Printf("%s [%t] (y/n): ", label, current)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "true":
		return true
	case "n", "no", "false":
		return false
	default:
		return current
	}
}

func launchPaper(reader *bufio.Reader) {
	fmt.Println("Launching paper bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/paper")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
