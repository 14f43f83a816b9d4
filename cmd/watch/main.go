package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"watchparty/client"
)

// consolePlayer is a headless Player for the terminal. It prints every
// sync action and advances its clock while playing.
type consolePlayer struct {
	mu      sync.Mutex
	videoID string
	playing bool
	base    float64
	since   time.Time
}

func (p *consolePlayer) LoadVideo(id string, start float64) {
	p.mu.Lock()
	p.videoID = id
	p.base = start
	p.playing = false
	p.mu.Unlock()
	fmt.Printf("* video %s cued at %.0fs\n", id, start)
}

func (p *consolePlayer) Play() {
	p.mu.Lock()
	if !p.playing {
		p.playing = true
		p.since = time.Now()
	}
	at := p.positionLocked()
	p.mu.Unlock()
	fmt.Printf("* playing from %.0fs\n", at)
}

func (p *consolePlayer) Pause() {
	p.mu.Lock()
	if p.playing {
		p.base = p.positionLocked()
		p.playing = false
	}
	at := p.base
	p.mu.Unlock()
	fmt.Printf("* paused at %.0fs\n", at)
}

func (p *consolePlayer) SeekTo(seconds float64) {
	p.mu.Lock()
	p.base = seconds
	p.since = time.Now()
	p.mu.Unlock()
	fmt.Printf("* jumped to %.0fs\n", seconds)
}

func (p *consolePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *consolePlayer) positionLocked() float64 {
	if p.playing {
		return p.base + time.Since(p.since).Seconds()
	}
	return p.base
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "server websocket URL")
	room := flag.String("room", "", "room code to join; create a new room when empty")
	flag.Parse()

	cfg := client.DefaultConfig()
	cfg.URL = *url

	c := client.New(cfg)
	player := &consolePlayer{}
	agent := client.NewSyncAgent(c, player, cfg, nil)

	agent.OnCreated = func(ev client.RoomCreated) {
		fmt.Printf("* room created: %s (share this code)\n", ev.RoomID)
	}
	agent.OnJoined = func(res client.JoinResult) {
		fmt.Printf("* joined room %s\n", agent.RoomID())
		for _, m := range res.Messages {
			fmt.Printf("[%s] %s\n", shortID(m.UserID), m.Text)
		}
	}
	agent.OnJoinFailed = func(reason string) {
		fmt.Fprintf(os.Stderr, "join failed: %s\n", reason)
		os.Exit(1)
	}
	agent.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "sync error: %v\n", err)
	}

	d := c.Dispatcher()
	d.OnChatMessage(func(m client.ChatMessage) {
		fmt.Printf("[%s] %s\n", shortID(m.UserID), m.Text)
	})
	d.OnUserJoined(func(ev client.UserEvent) {
		fmt.Printf("* %s joined\n", shortID(ev.UserID))
	})
	d.OnUserLeft(func(ev client.UserEvent) {
		fmt.Printf("* %s left\n", shortID(ev.UserID))
	})
	d.OnError(func(err error) {
		fmt.Fprintf(os.Stderr, "connection error: %v\n", err)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()
	go agent.Start(ctx)

	var err error
	if *room != "" {
		err = agent.JoinRoom(ctx, *room)
	} else {
		err = agent.CreateRoom(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("commands: /video <url>, /play, /pause, /seek <seconds>, /quit; anything else is chat")

	go func() {
		<-c.Done()
		fmt.Println("* disconnected")
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handle(ctx, line, c, agent, player); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handle(ctx context.Context, line string, c *client.Client, agent *client.SyncAgent, player *consolePlayer) error {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit":
		return errQuit
	case "/video":
		return agent.LoadVideo(ctx, strings.TrimSpace(rest))
	case "/play":
		player.Play()
		agent.HandleStateChange(ctx, true)
		return nil
	case "/pause":
		player.Pause()
		agent.HandleStateChange(ctx, false)
		return nil
	case "/seek":
		seconds, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return fmt.Errorf("usage: /seek <seconds>")
		}
		// The drift poll notices the jump and reports it to the room.
		player.SeekTo(seconds)
		return nil
	default:
		return c.SendChat(ctx, line)
	}
}

func shortID(userID string) string {
	if len(userID) > 8 {
		return userID[:8]
	}
	return userID
}
