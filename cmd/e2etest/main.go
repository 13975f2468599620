// E2E test: drives two viewers through a live sync server.
// Usage: go run ./cmd/e2etest -server ws://localhost:3000/ws
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"cowatch-sync-server/domain"
)

var (
	serverURL = flag.String("server", "ws://localhost:3000/ws", "sync server WebSocket URL")
	roomCode  = flag.String("room", "e2e-room", "room code to join")
	timeout   = flag.Duration("timeout", 5*time.Second, "per-step timeout")
)

type viewer struct {
	name string
	conn *websocket.Conn
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	ctx := context.Background()

	log.Println(">> Connecting host...")
	host := mustDial(ctx, "Host")
	defer host.conn.Close(websocket.StatusNormalClosure, "done")
	log.Println("   Host connected ✓")

	log.Println(">> Connecting guest...")
	guest := mustDial(ctx, "Guest")
	defer guest.conn.Close(websocket.StatusNormalClosure, "done")
	log.Println("   Guest connected ✓")

	log.Println(">> Host joining room...")
	host.emit(ctx, domain.EventJoinRoom, domain.JoinRoomPayload{RoomCode: *roomCode, Username: host.name, VideoURL: "https://example.com/v.mp4"})
	var state domain.PlaybackState
	host.expect(ctx, domain.EventRoomState, &state)
	host.expect(ctx, domain.EventUserJoined, nil)
	log.Printf("   Host got state %+v ✓", state)

	log.Println(">> Guest joining room...")
	guest.emit(ctx, domain.EventJoinRoom, domain.JoinRoomPayload{RoomCode: *roomCode, Username: guest.name})
	guest.expect(ctx, domain.EventRoomState, &state)
	var members domain.MembersPayload
	guest.expect(ctx, domain.EventUserJoined, &members)
	host.expect(ctx, domain.EventUserJoined, nil)
	log.Printf("   Members %v ✓", members.Users)

	log.Println(">> Guest seeking...")
	guest.emit(ctx, domain.EventVideoSeek, 42.5)
	var at float64
	host.expect(ctx, domain.EventSyncSeek, &at)
	log.Printf("   Host synced to %.1f ✓", at)

	log.Println(">> Host playing...")
	host.emit(ctx, domain.EventVideoPlay, at)
	guest.expect(ctx, domain.EventSyncPlay, &at)
	log.Println("   Guest resumed ✓")

	log.Println(">> Guest chatting...")
	guest.emit(ctx, domain.EventChatMessage, "hello from guest")
	var chat domain.ChatPayload
	host.expect(ctx, domain.EventNewChatMessage, &chat)
	guest.expect(ctx, domain.EventNewChatMessage, nil)
	log.Printf("   Host received [%s] %s: %s ✓", chat.Time, chat.Username, chat.Message)

	log.Println(">> Guest leaving...")
	guest.conn.Close(websocket.StatusNormalClosure, "bye")
	host.expect(ctx, domain.EventUserLeft, &members)
	log.Printf("   Members %v ✓", members.Users)

	fmt.Println()
	log.Println("═══════════════════════════════")
	log.Println("  E2E TEST PASSED ✓")
	log.Println("═══════════════════════════════")
}

func mustDial(ctx context.Context, name string) *viewer {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *serverURL, nil)
	if err != nil {
		log.Fatalf("%s connect: %v", name, err)
	}
	return &viewer{name: name, conn: conn}
}

func (v *viewer) emit(ctx context.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("%s marshal %s: %v", v.name, event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := wsjson.Write(ctx, v.conn, domain.Envelope{Event: event, Data: data}); err != nil {
		log.Fatalf("%s send %s: %v", v.name, event, err)
	}
}

func (v *viewer) expect(ctx context.Context, event string, into any) {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var env domain.Envelope
	if err := wsjson.Read(ctx, v.conn, &env); err != nil {
		log.Fatalf("%s waiting for %s: %v", v.name, event, err)
	}
	if env.Event != event {
		log.Fatalf("%s expected %s, got %s", v.name, event, env.Event)
	}
	if into == nil {
		return
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		log.Fatalf("%s decode %s: %v", v.name, event, err)
	}
}
