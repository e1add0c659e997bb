// ws_smoke connects to a running server as one player, triggers a navigate
// and a tap over HTTP and waits for the matching websocket frames.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"idle_tapper/internal/auth"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	playerID := int64(3001)
	if v := os.Getenv("SMOKE_PLAYER_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			playerID = n
		}
	}

	token, err := auth.New(jwtSecret, "", false).IssueToken(playerID)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", base, token), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	wait(conn, "ready", 5*time.Second)

	post(base, token, "/api/v1/navigate", map[string]string{"tab": "map"})
	wait(conn, "navigate", 5*time.Second)

	post(base, token, "/api/v1/tap", map[string]int{"count": 5})
	// saves are debounced, so allow for the delay
	f := wait(conn, "save_changed", 10*time.Second)
	log.Printf("smoke ok: %s", f.Payload)
}

func post(base, token, path string, body any) {
	buf, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, "http://"+base+path, bytes.NewReader(buf))
	if err != nil {
		log.Fatalf("build request %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	res.Body.Close()
	if res.StatusCode >= 300 {
		log.Fatalf("POST %s: status %d", path, res.StatusCode)
	}
}

// wait reads frames until one of the wanted type arrives.
func wait(conn *websocket.Conn, want string, timeout time.Duration) frame {
	deadline := time.Now().Add(timeout)
	for {
		conn.SetReadDeadline(deadline)
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Fatalf("waiting for %s: %v", want, err)
		}
		log.Printf("recv %s", f.Type)
		if f.Type == want {
			return f
		}
	}
}
