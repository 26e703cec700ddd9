package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/averdin/gamebots/internal/bot"
	"github.com/averdin/gamebots/internal/game"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`referencebot - grid reference game bot

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information

Environment Variables:
  SLURK_URL        Chat platform base URL (default: http://localhost:5000)
  SLURK_TOKEN      Platform API token for the bot user
  SLURK_USER       Bot user id on the platform
  TASK_ID          Task this bot serves; other rooms are ignored
  WAITING_ROOM     Waiting room id, exempt from session handling
  INSTANCES_FILE   JSON file with grid items (default: data/instances.json)
  ROUNDS_PER_ROOM  Rounds played per room (default: 3)
  ROUND_TIMEOUT    Inactivity/round timeout, Go duration (default: 5m)
  LEAVE_GRACE      Rejoin grace after a leave, Go duration (default: 1m)
  RESULTS_DB       Sqlite file for round results (default: results.db)
  TOKEN_SECRET     HMAC secret for completion tokens
  HEALTH_PORT      Health endpoint port (default: 8080)
`, os.Args[0])
		return
	}
	if *showVersion {
		fmt.Printf("referencebot %s\n", version)
		return
	}

	if err := bot.Run("referencebot", game.ModeGrid); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
