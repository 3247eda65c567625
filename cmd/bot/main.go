package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"overburnt.game/internal/protocol"
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/session"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		url       string
		name      string
		configDir string
		level     int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "overburnt-bot",
		Short: "Play a session greedily against a running server",
		Long: `Connects to the server, then on every STATE frame clicks ready clickable items,
drags ready items to the client or workbench that needs them and continues finished levels.
Exits when the game is beaten or the connection closes.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogs.Load(configDir)
			if err != nil {
				return fmt.Errorf("load catalogs: %w", err)
			}
			hello := protocol.HelloMsg{
				Type:            protocol.TypeHello,
				ProtocolVersion: protocol.Version,
				PlayerName:      name,
			}
			if cmd.Flags().Changed("level") {
				hello.LevelIndex = &level
			}
			if cmd.Flags().Changed("seed") {
				hello.Seed = &seed
			}
			logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
			return play(url, hello, newPlanner(cat), logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&url, "url", "ws://localhost:8080/v1/ws", "ws url")
	f.StringVar(&name, "name", "bot", "player name")
	f.StringVar(&configDir, "config-dir", "./configs", "game data directory (for item and recipe lookups)")
	f.IntVar(&level, "level", 0, "start level index")
	f.Int64Var(&seed, "seed", 0, "session seed")
	return cmd
}

type stateFrame struct {
	Tick     uint64           `json:"tick"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func play(url string, hello protocol.HelloMsg, p *planner, logger *log.Logger) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s tick_rate=%d seed=%d", w.SessionID, w.TickRateHz, w.Seed)

		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			switch session.EventKind(ev.Event) {
			case session.KindLevelStarted, session.KindLevelFinished, session.KindLevelReset:
				logger.Printf("tick=%d %s %v", ev.Tick, ev.Event, ev.Data)
			case session.KindGameBeaten:
				logger.Printf("tick=%d game beaten", ev.Tick)
				return nil
			}

		case protocol.TypeState:
			var st stateFrame
			if err := json.Unmarshal(msg, &st); err != nil {
				logger.Printf("bad STATE: %v", err)
				continue
			}
			for _, in := range p.plan(st.Tick, st.Snapshot) {
				if err := conn.WriteJSON(in); err != nil {
					return fmt.Errorf("send INPUT: %w", err)
				}
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}
}
