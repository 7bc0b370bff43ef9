package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talkmira/mira/internal/config"
	"github.com/talkmira/mira/internal/gateway"
	"github.com/talkmira/mira/internal/llm"
	"github.com/talkmira/mira/internal/memory"
	"github.com/talkmira/mira/internal/orchestrator"
)

const cliUserID = "cli:local"

var rootCmd = &cobra.Command{
	Use:   "mira",
	Short: "mira - supportive companion bot",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (channels + scheduler)",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion in the terminal",
	RunE:  runChat,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and (optionally) a user profile",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mira status",
	RunE:  runStatus,
}

var (
	nameFlag     string
	partnerFlag  string
	yearsFlag    int
	childrenFlag string
	premiumFlag  bool
	userFlag     string
)

func init() {
	onboardCmd.Flags().StringVar(&nameFlag, "name", "", "user's name")
	onboardCmd.Flags().StringVar(&partnerFlag, "partner", "", "partner's name")
	onboardCmd.Flags().IntVar(&yearsFlag, "years", 0, "years married")
	onboardCmd.Flags().StringVar(&childrenFlag, "children", "", "children info")
	onboardCmd.Flags().BoolVar(&premiumFlag, "premium", false, "premium subscription")
	onboardCmd.Flags().StringVar(&userFlag, "user", cliUserID, "user id (e.g. telegram:12345)")
	rootCmd.AddCommand(serveCmd, chatCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'mira onboard' or set MIRA_API_KEY / ANTHROPIC_API_KEY")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(context.Background())
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'mira onboard' or set MIRA_API_KEY / ANTHROPIC_API_KEY")
	}

	engine, err := memory.NewEngine(dbPath(cfg))
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer engine.Close()

	client := llm.NewClient(cfg)
	o := orchestrator.New(cfg, engine, client)
	ctx := context.Background()

	fmt.Printf("%s слушает (напиши 'выход' чтобы закончить)\n", personaDisplay(cfg.Persona))
	if turns, err := engine.RecentTurns(cliUserID, 10); err == nil && len(turns) > 0 {
		summarizer := memory.NewSummarizer(client, engine, cfg.Memory.ExpiryDays)
		fmt.Printf("В прошлый раз: %s\n", summarizer.SummarizeBrief(ctx, turns))
	}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "выход" || input == "exit" || input == "quit" {
			break
		}

		result, err := o.GenerateResponse(ctx, cliUserID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
			continue
		}
		fmt.Println(result.Response)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if nameFlag != "" || partnerFlag != "" || childrenFlag != "" || yearsFlag > 0 || premiumFlag {
		engine, err := memory.NewEngine(dbPath(cfg))
		if err != nil {
			return fmt.Errorf("open memory: %w", err)
		}
		defer engine.Close()

		if err := engine.UpsertProfile(memory.Profile{
			UserID:        userFlag,
			DisplayName:   nameFlag,
			PartnerName:   partnerFlag,
			MarriageYears: yearsFlag,
			ChildrenInfo:  childrenFlag,
			IsPremium:     premiumFlag,
		}); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		fmt.Printf("Profile saved for %s\n", userFlag)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key and Telegram token\n", cfgPath)
	fmt.Println("  2. Or set MIRA_API_KEY / MIRA_TELEGRAM_TOKEN environment variables")
	fmt.Println("  3. Run 'mira chat' to talk locally, or 'mira serve' to start the bot")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Persona: %s\n", cfg.Persona)
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		fmt.Printf("API Key: %s...%s\n", cfg.Provider.APIKey[:4], cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:])
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("WebUI: enabled=%v\n", cfg.Channels.WebUI.Enabled)
	fmt.Printf("Crisis hotline: %s\n", cfg.Crisis.Hotline)
	fmt.Printf("Daily sweep: %s\n", cfg.Scheduler.DailySweep)

	path := dbPath(cfg)
	if _, err := os.Stat(path); err != nil {
		fmt.Println("Memory: empty (no database yet)")
		return nil
	}
	engine, err := memory.NewEngine(path)
	if err != nil {
		fmt.Printf("Memory: error (%v)\n", err)
		return nil
	}
	defer engine.Close()
	if users, err := engine.ConversationUserIDs(); err == nil {
		fmt.Printf("Memory: %s (%d users with conversations)\n", path, len(users))
	}
	return nil
}

func personaDisplay(persona string) string {
	if persona == "mark" {
		return "Марк"
	}
	return "Мира"
}

func dbPath(cfg *config.Config) string {
	path := strings.TrimSpace(cfg.Memory.DBPath)
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "data", "mira.db")
	}
	return path
}
