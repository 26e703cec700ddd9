package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

// platformd is a development stand-in for the chat platform: it accepts the
// same REST calls the bots make, relays their chat messages, and offers
// /dev endpoints to inject the events a real platform would emit. Not for
// production use.

const version = "v1.0.0"

// eventsRoom is the socket.io room every connected bot sits in.
const eventsRoom = "events"

type state struct {
	mu       sync.Mutex
	nextPerm int
	perms    map[string]int             // userID -> permission id
	rooms    map[string]map[string]bool // roomID -> member user ids
	titles   map[string]string
}

func newState() *state {
	return &state{perms: make(map[string]int), rooms: make(map[string]map[string]bool), titles: make(map[string]string)}
}

func (st *state) permID(userID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.perms[userID]; ok {
		return id
	}
	st.nextPerm++
	st.perms[userID] = st.nextPerm
	return st.nextPerm
}

func (st *state) join(roomID, userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.rooms[roomID] == nil {
		st.rooms[roomID] = make(map[string]bool)
	}
	st.rooms[roomID][userID] = true
}

func (st *state) leave(roomID, userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if m := st.rooms[roomID]; m != nil {
		delete(m, userID)
	}
}

func (st *state) setTitle(roomID, title string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.titles[roomID] = title
}

func main() {
	portFlag := flag.String("port", "", "Port to listen on (overrides PORT env var)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()
	if *showVersion {
		fmt.Printf("platformd %s\n", version)
		return
	}
	port := *portFlag
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "5000"
	}

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).Msg("http")
	})

	st := newState()
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.Join(eventsRoom)
		zerologlog.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})
	// bots emit "text"; relay it as the "text_message" everyone receives
	io.OnEvent("/", "text", func(s socketio.Conn, payload map[string]any) {
		ev := map[string]any{
			"room":    payload["room"],
			"message": payload["message"],
			"html":    payload["html"],
			"user":    map[string]any{"id": s.ID(), "name": "bot"},
		}
		if rid, ok := payload["receiver_id"]; ok {
			ev["receiver_id"] = rid
		}
		io.BroadcastToRoom("/", eventsRoom, "text_message", ev)
	})
	io.OnError("/", func(s socketio.Conn, e error) {
		zerologlog.Error().Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		zerologlog.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()
	defer io.Close()
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// the REST surface the bots call
	r.POST("/users/:user/rooms/:room", func(c *gin.Context) {
		st.join(c.Param("room"), c.Param("user"))
		c.Status(http.StatusCreated)
	})
	r.DELETE("/users/:user/rooms/:room", func(c *gin.Context) {
		st.leave(c.Param("room"), c.Param("user"))
		c.Status(http.StatusOK)
	})
	r.GET("/users/:user", func(c *gin.Context) {
		c.Header("ETag", "user-"+c.Param("user"))
		c.JSON(http.StatusOK, gin.H{"id": c.Param("user")})
	})
	r.GET("/users/:user/permissions", func(c *gin.Context) {
		c.Header("ETag", "perm-"+c.Param("user"))
		c.JSON(http.StatusOK, gin.H{"id": st.permID(c.Param("user"))})
	})
	r.PATCH("/permissions/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.PATCH("/rooms/:room/attribute/id/:element", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.DELETE("/rooms/:room/attribute/id/:element", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.PATCH("/rooms/:room/text/title", func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
			return
		}
		st.setTitle(c.Param("room"), body.Text)
		zerologlog.Info().Str("room", c.Param("room")).Str("title", body.Text).Msg("title set")
		c.Status(http.StatusOK)
	})

	// dev-only event injection, standing in for real user activity
	emit := func(event string) gin.HandlerFunc {
		return func(c *gin.Context) {
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
				return
			}
			io.BroadcastToRoom("/", eventsRoom, event, payload)
			zerologlog.Info().Str("event", event).Interface("payload", payload).Msg("event injected")
			c.Status(http.StatusOK)
		}
	}
	r.POST("/dev/rooms", emit("new_task_room"))
	r.POST("/dev/status", emit("status"))
	r.POST("/dev/message", emit("text_message"))
	r.POST("/dev/command", emit("command"))

	zerologlog.Info().Str("port", port).Msg("platformd listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server failed")
	}
}
