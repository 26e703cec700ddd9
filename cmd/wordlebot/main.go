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
		fmt.Printf(`wordlebot - word guessing game bot

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information

Environment Variables:
  GAME_MODE        "word_feedback" (default) or "word_guess"
  BOT_VERSION      "clue" sends the word's clue to the guesser
  SLURK_URL        Chat platform base URL (default: http://localhost:5000)
  SLURK_TOKEN      Platform API token for the bot user
  SLURK_USER       Bot user id on the platform
  TASK_ID          Task this bot serves; other rooms are ignored
  WAITING_ROOM     Waiting room id, exempt from session handling
  INSTANCES_FILE   JSON file with word items (default: data/instances.json)
  ROUNDS_PER_ROOM  Rounds played per room (default: 3)
  MAX_GUESSES      Guesses per round (default: 6)
  WORD_LENGTH      Required guess length (default: 5)
  POINT_SYSTEM     remaining:points pairs (default: 6:100,5:50,4:25,3:10,2:5,1:1)
  ROUND_TIMEOUT    Inactivity/round timeout, Go duration (default: 5m)
  LEAVE_GRACE      Rejoin grace after a leave, Go duration (default: 1m)
  RESULTS_DB       Sqlite file for round results (default: results.db)
  TOKEN_SECRET     HMAC secret for completion tokens
  HEALTH_PORT      Health endpoint port (default: 8080)
`, os.Args[0])
		return
	}
	if *showVersion {
		fmt.Printf("wordlebot %s\n", version)
		return
	}

	if err := bot.Run("wordlebot", game.ModeWordFeedback); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
