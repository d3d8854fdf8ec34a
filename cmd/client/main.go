package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"chat-relay/domain"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type historyEntry struct {
	Username string `json:"username"`
	Content  string `json:"message"`
	System   bool   `json:"system,omitempty"`
}

// Terminal chat client. Registers or logs in, replays the channel history,
// shows who is around, then stays attached until interrupted.
func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	channel := flag.String("channel", "general", "channel to join")
	register := flag.Bool("register", false, "create the account first")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -user and -pass are required")
	}

	baseURL := "http://" + *addr

	if *register {
		if err := postCredentials(baseURL+"/user/register", *username, *password, nil); err != nil {
			log.Fatalf("Registration failed: %v", err)
		}
		color.Green.Printf("Account %s created\n", *username)
	}

	var auth tokenResponse
	if err := postCredentials(baseURL+"/user/login", *username, *password, &auth); err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	printHistory(baseURL, auth.Token, *channel)
	printPresence(baseURL, auth.Token, *channel)

	wsURL := fmt.Sprintf("ws://%s/ws/%s?token=%s", *addr, *channel, auth.Token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Websocket dial failed: %v", err)
	}
	defer conn.Close()

	color.Green.Printf("Joined #%s as %s\n", *channel, *username)

	// Inbound printer
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				color.Red.Println("Connection closed")
				os.Exit(0)
			}
			printLine(string(payload))
		}
	}()

	// Application-level keepalive on top of the transport pings
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(domain.HeartbeatToken)); err != nil {
				return
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			log.Fatalf("Send failed: %v", err)
		}
	}
}

func printLine(line string) {
	switch {
	case line == domain.HeartbeatToken:
		// Another client's keepalive, not conversation
	case strings.HasSuffix(line, "joined the chat"):
		color.Green.Println(line)
	case strings.HasSuffix(line, "left the chat"):
		color.Red.Println(line)
	default:
		fmt.Println(line)
	}
}

func printHistory(baseURL, token, channel string) {
	var history []historyEntry
	if err := getJSON(baseURL+"/channel/history/"+channel, token, &history); err != nil {
		log.Fatalf("History fetch failed: %v", err)
	}
	for _, entry := range history {
		if entry.System {
			printLine(entry.Content)
			continue
		}
		printLine(fmt.Sprintf("%s: %s", entry.Username, entry.Content))
	}
}

func printPresence(baseURL, token, channel string) {
	var statuses []struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	if err := getJSON(baseURL+"/channel/presence/"+channel, token, &statuses); err != nil {
		log.Fatalf("Presence fetch failed: %v", err)
	}
	if len(statuses) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Status"})
	table.SetBorder(false)
	for _, s := range statuses {
		table.Append([]string{s.Username, s.Status})
	}
	table.Render()
}

func postCredentials(url, username, password string, out any) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(url, token string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
