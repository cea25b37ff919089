// Command probe is a small operator client: it connects to a running
// waiting-room server, prints the room list, opens its own room and
// waits for it to become ready.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"waitroom/domain"
	"waitroom/protocol"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	header(cfg, fmt.Sprintf("  ====== probe -> %s ======", cfg.ServerURL))

	ws, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL, nil)
	if err != nil {
		log.Fatalf("Could not connect to %s: %v", cfg.ServerURL, err)
	}
	defer ws.Close()

	// 1. Room inventory
	send(ws, protocol.MsgListRooms, nil)
	env := read(ws)
	if env.MsgID == protocol.MsgListRooms {
		renderRooms(env.Msg)
	}

	// 2. Open our own room; the server joins us into it right away
	send(ws, protocol.MsgCreateRoom, protocol.CreateRoomRequest{
		Capacity:    cfg.RoomSize,
		Name:        cfg.RoomName,
		DisplayName: cfg.Name,
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	frames := make(chan protocol.Envelope)
	go func() {
		defer close(frames)
		for {
			raw := readRaw(ws)
			if raw == nil {
				return
			}
			env, err := protocol.Decode(raw)
			if err != nil {
				log.Printf("Undecodable frame: %v", err)
				continue
			}
			frames <- env
		}
	}()

	// 3. Follow the room until it is ready or we are told to stop
	for {
		select {
		case <-interrupt:
			fmt.Println("bye")
			return
		case env, ok := <-frames:
			if !ok {
				return
			}
			switch env.MsgID {
			case protocol.MsgRoomCreated:
				var ref protocol.RoomRef
				_ = json.Unmarshal(env.Msg, &ref)
				header(cfg, fmt.Sprintf("  room created: %s (share this id, size=%d)", ref.RoomID, cfg.RoomSize))
			case protocol.MsgRoomJoined:
				fmt.Println("joined, waiting for the others...")
			case protocol.MsgRoomReady:
				header(cfg, "  ROOM READY, everyone is here")
				renderRoom(env.Msg)
				return
			case protocol.MsgRoomError, protocol.MsgWSError:
				var er protocol.ErrorResponse
				_ = json.Unmarshal(env.Msg, &er)
				log.Fatalf("Server refused: %s", er.Error)
			}
		}
	}
}

func header(cfg Config, text string) {
	if cfg.Colours {
		text = color.New(color.BgBlack, color.FgGreen).Render(text)
	}
	fmt.Println(text)
}

func send(ws *websocket.Conn, msgID string, payload any) {
	data, err := protocol.Encode(msgID, payload)
	if err != nil {
		log.Fatalf("Encode failed: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("Write failed: %v", err)
	}
}

func readRaw(ws *websocket.Conn) []byte {
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return nil
	}
	return raw
}

func read(ws *websocket.Conn) protocol.Envelope {
	raw := readRaw(ws)
	if raw == nil {
		log.Fatal("Connection closed by server")
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		log.Fatalf("Undecodable frame: %v", err)
	}
	return env
}

func renderRooms(msg json.RawMessage) {
	var rooms map[string]domain.RoomSnapshot
	if err := json.Unmarshal(msg, &rooms); err != nil {
		log.Printf("Unreadable room list: %v", err)
		return
	}

	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Size", "Occupancy"})
	for _, id := range ids {
		room := rooms[id]
		table.Append([]string{
			room.ID,
			room.Name,
			strconv.Itoa(room.Size),
			strconv.Itoa(room.Occupancy()),
		})
	}
	table.Render()
}

func renderRoom(msg json.RawMessage) {
	var room domain.RoomSnapshot
	if err := json.Unmarshal(msg, &room); err != nil {
		log.Printf("Unreadable room: %v", err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Member", "Name"})
	for _, member := range room.Clients {
		table.Append([]string{member.ID, member.Name})
	}
	table.Render()
}
