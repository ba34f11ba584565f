package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/transport/observer"
)

// bot throws random missiles into an arena and prints the resulting events.
func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "server base url")
		arena   = flag.String("arena", "classic", "arena name")
		missile = flag.String("missile", "tomahawk", "missile name")
		team    = flag.String("team", "red", "team name")
		name    = flag.String("name", "bot", "player id")
		every   = flag.Duration("every", 2*time.Second, "throw interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	base := strings.TrimRight(*baseURL, "/")
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/v1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	sub := observer.SubscribeMsg{Type: observer.TypeSubscribe, ProtocolVersion: protocol.Version, Arena: *arena}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}
	go readEvents(conn, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	tick := time.NewTicker(*every)
	defer tick.Stop()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	cl := &http.Client{Timeout: 5 * time.Second}

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		yaw := r.Float64()*360 - 180
		req := protocol.PlaceRequest{
			Type:     protocol.TypePlace,
			Arena:    *arena,
			Missile:  *missile,
			Team:     *team,
			PlayerID: *name,
			Anchor:   [3]int{r.Intn(31) - 15, 80, r.Intn(31) - 15},
			Yaw:      &yaw,
		}
		throw(cl, base, req, logger)
	}
}

func throw(cl *http.Client, base string, req protocol.PlaceRequest, logger *log.Logger) {
	b, _ := json.Marshal(req)
	resp, err := cl.Post(base+"/v1/place", "application/json", bytes.NewReader(b))
	if err != nil {
		logger.Printf("place: %v", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var out protocol.PlaceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		logger.Printf("place: status=%d body=%s", resp.StatusCode, body)
		return
	}
	if !out.Accepted {
		logger.Printf("REJECTED yaw=%.1f code=%s msg=%s", *req.Yaw, out.Code, out.Message)
		return
	}
	logger.Printf("THROW yaw=%.1f anchor=%v id=%s", *req.Yaw, req.Anchor, out.PlacementID)
}

func readEvents(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypePlacement:
			var ev protocol.PlacementEvent
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			if ev.Code != "" {
				logger.Printf("FAILED id=%s code=%s msg=%s", ev.PlacementID, ev.Code, ev.Message)
				continue
			}
			logger.Printf("PLACED id=%s facing=%s origin=%v rotation=%d blocks=%d", ev.PlacementID, ev.Facing, ev.Origin, ev.Rotation, ev.Placed)

		case protocol.TypeCleanup:
			var ev protocol.CleanupEvent
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			logger.Printf("CLEANUP id=%s outcome=%s cleared=%d", ev.PlacementID, ev.Outcome, ev.Cleared)
		}
	}
}
