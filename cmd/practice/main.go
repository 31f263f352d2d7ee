package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "practiced.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "migrate":
		err = cmdMigrate()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "progress":
		err = cmdProgress(os.Args[2:])
	case "activity":
		err = cmdActivity(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("practice %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Practice - interview and aptitude practice with XP and streaks

Usage:
  practice <command> [arguments]

Setup Commands:
  init            Create ~/.practice and a default config
  config          Show current configuration
  migrate         Apply SQLite schema migrations

Daemon Commands:
  start           Start the practice daemon
  stop            Stop the practice daemon
  status          Show daemon status
  logs            View daemon logs

Progress Commands:
  progress <user>          Show XP and streak
  activity <user> [limit]  Show recent practice activity

Integration Commands:
  mcp             Start MCP server on stdio

Other:
  help            Show this help message
  version         Show version information

Examples:
  practice init
  practice start
  practice progress alice
  practice activity alice 5`)
}

// renderStreak draws one flame per streak day, capped at width
func renderStreak(days, width int) string {
	if days <= 0 {
		return "-"
	}
	if days > width {
		return strings.Repeat("*", width) + fmt.Sprintf(" +%d", days-width)
	}
	return strings.Repeat("*", days)
}
