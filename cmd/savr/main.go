package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/savr-devTeam/savr.ai/internal/app"
	"github.com/savr-devTeam/savr.ai/internal/auth"
	"github.com/savr-devTeam/savr.ai/internal/config"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewOffline(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	switch os.Args[1] {
	case "week":
		runWeek(application, os.Args[2:])
	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		user := exportCmd.String("user", auth.AnonymousUser, "User whose week is exported")
		out := exportCmd.String("out", "savr-week.xlsx", "Output file")
		exportCmd.Parse(os.Args[2:])

		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *out, err)
		}
		if err := application.ExportWorkbook(f, *user); err != nil {
			f.Close()
			log.Fatalf("Export failed: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Failed to write %s: %v", *out, err)
		}
		fmt.Printf("Wrote %s\n", *out)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := application.Metrics.Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runWeek(application *app.App, args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	weekCmd := flag.NewFlagSet("week "+args[0], flag.ExitOnError)
	user := weekCmd.String("user", auth.AnonymousUser, "User whose week is read")
	weekCmd.Parse(args[1:])

	switch args[0] {
	case "show":
		printWeek(application.LoadWeek(*user))
	case "clear":
		application.ClearWeek(*user)
		fmt.Printf("Cleared the week of %s.\n", *user)
	default:
		fmt.Printf("Unknown week command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printWeek(g week.Grid) {
	for day, plan := range g {
		fmt.Println(week.DayLabels[day])
		for _, slot := range week.Slots {
			title := "-"
			if card := plan.Get(slot); card != nil {
				title = fmt.Sprintf("%s (%.0f kcal)", card.Title, card.Calories)
			}
			fmt.Printf("  %-10s %s\n", slot, title)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: savr <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  week show --user ID      Print a user's week")
	fmt.Println("  week clear --user ID     Empty a user's week")
	fmt.Println("  export --user ID --out F Write the week and pantry to an xlsx file")
	fmt.Println("  metrics-cleanup          Remove old metric records")
}
