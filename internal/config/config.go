package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds one bot process's settings, read from the environment.
type Config struct {
	PlatformURL   string
	PlatformToken string
	BotUserID     string
	TaskID        string
	WaitingRoomID string

	Mode         string
	RoundCount   int
	RoundTimeout time.Duration
	LeaveGrace   time.Duration
	MaxGuesses   int
	WordLength   int
	PointSystem  map[int]int
	ClueEnabled  bool

	InstancesFile string
	ResultsDB     string
	TokenSecret   string
	HealthPort    string
}

func FromEnv() (Config, error) {
	c := Config{}
	c.PlatformURL = getenv("SLURK_URL", "http://localhost:5000")
	c.PlatformToken = os.Getenv("SLURK_TOKEN")
	c.BotUserID = os.Getenv("SLURK_USER")
	c.TaskID = os.Getenv("TASK_ID")
	c.WaitingRoomID = os.Getenv("WAITING_ROOM")

	c.Mode = os.Getenv("GAME_MODE")
	c.InstancesFile = getenv("INSTANCES_FILE", "data/instances.json")
	c.ResultsDB = getenv("RESULTS_DB", "results.db")
	c.TokenSecret = getenv("TOKEN_SECRET", "dev_secret_change_me")
	c.HealthPort = getenv("HEALTH_PORT", "8080")

	var err error
	if c.RoundCount, err = getint("ROUNDS_PER_ROOM", 3); err != nil {
		return Config{}, err
	}
	if c.MaxGuesses, err = getint("MAX_GUESSES", 6); err != nil {
		return Config{}, err
	}
	if c.WordLength, err = getint("WORD_LENGTH", 5); err != nil {
		return Config{}, err
	}
	if c.RoundTimeout, err = getduration("ROUND_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if c.LeaveGrace, err = getduration("LEAVE_GRACE", time.Minute); err != nil {
		return Config{}, err
	}
	if c.PointSystem, err = ParsePointSystem(getenv("POINT_SYSTEM", "6:100,5:50,4:25,3:10,2:5,1:1")); err != nil {
		return Config{}, err
	}
	c.ClueEnabled = getenv("BOT_VERSION", "") == "clue"
	return c, nil
}

// ParsePointSystem reads a "remaining:points" mapping, e.g. "6:100,5:50".
func ParsePointSystem(s string) (map[int]int, error) {
	out := make(map[int]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("point system entry %q: want remaining:points", pair)
		}
		remaining, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("point system entry %q: %w", pair, err)
		}
		points, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("point system entry %q: %w", pair, err)
		}
		out[remaining] = points
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty point system")
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
