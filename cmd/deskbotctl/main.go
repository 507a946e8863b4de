package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cremix-io/deskbot/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "chat":
		cmdChat(os.Args[2:])
	case "health":
		cmdHealth()
	case "sessions":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskbotctl sessions <list|show|close>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdSessionsList()
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskbotctl sessions show <id>")
				os.Exit(1)
			}
			cmdSessionsShow(os.Args[3])
		case "close":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskbotctl sessions close <id>")
				os.Exit(1)
			}
			cmdSessionsClose(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown sessions subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "resolved":
		cmdResolved(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: deskbotctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- chat command ---

type turnResult struct {
	BotMessage struct {
		Text    string   `json:"text"`
		Options []string `json:"options"`
	} `json:"botMessage"`
	DraftTicket bool `json:"draftTicket"`
	EndChat     bool `json:"endChat"`
}

func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	customerID := fs.String("customer", envOr("DESKBOT_CUSTOMER_ID", "ctl-user"), "Customer ID")
	name := fs.String("name", "", "Customer name")
	email := fs.String("email", "", "Customer email")
	fs.Parse(args)

	body, err := apiDo("POST", "/api/sessions", map[string]any{
		"customer": map[string]string{"id": *customerID, "name": *name, "email": *email},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var view struct {
		ID         string `json:"id"`
		Transcript []struct {
			Text    string   `json:"text"`
			Options []string `json:"options"`
		} `json:"transcript"`
	}
	json.Unmarshal(body, &view)

	fmt.Printf("session %s (type 'quit' to exit, a number picks an option)\n\n", view.ID)
	var options []string
	if len(view.Transcript) > 0 {
		greeting := view.Transcript[len(view.Transcript)-1]
		options = greeting.Options
		printBot(greeting.Text, options)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		path := "/api/sessions/" + view.ID + "/messages"
		payload := map[string]string{"text": line}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			path = "/api/sessions/" + view.ID + "/options"
			payload = map[string]string{"option": options[n-1]}
		}

		body, err := apiDo("POST", path, payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		var turn turnResult
		json.Unmarshal(body, &turn)
		options = turn.BotMessage.Options
		printBot(turn.BotMessage.Text, options)

		if turn.DraftTicket {
			body, err := apiDo("POST", "/api/sessions/"+view.ID+"/ticket", nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			var resp struct {
				Turn turnResult `json:"turn"`
			}
			json.Unmarshal(body, &resp)
			options = resp.Turn.BotMessage.Options
			printBot(resp.Turn.BotMessage.Text, options)
		}
		if turn.EndChat {
			break
		}
	}
}

func printBot(text string, options []string) {
	fmt.Println(text)
	for i, opt := range options {
		fmt.Printf("  %d. %s\n", i+1, opt)
	}
	fmt.Println()
}

// --- API client commands ---

func cmdHealth() {
	body, err := apiDo("GET", "/api/health", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdSessionsList() {
	body, err := apiDo("GET", "/api/sessions", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var sessions []struct {
		ID           string `json:"id"`
		Conversation struct {
			Phase    string `json:"phase"`
			Category string `json:"category"`
		} `json:"conversation"`
		LastActive time.Time `json:"lastActive"`
	}
	json.Unmarshal(body, &sessions)
	for _, s := range sessions {
		fmt.Printf("%-36s %-20s %-15s %s\n", s.ID, s.Conversation.Phase, s.Conversation.Category, s.LastActive.Format(time.RFC3339))
	}
}

func cmdSessionsShow(id string) {
	body, err := apiDo("GET", "/api/sessions/"+id, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdSessionsClose(id string) {
	body, err := apiDo("DELETE", "/api/sessions/"+id, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdResolved(args []string) {
	fs := flag.NewFlagSet("resolved", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	body, err := apiDo("GET", fmt.Sprintf("/api/resolved?limit=%d", *limit), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var issues []struct {
		SessionID  string    `json:"sessionId"`
		Category   string    `json:"category"`
		Method     string    `json:"method"`
		ResolvedAt time.Time `json:"resolvedAt"`
	}
	json.Unmarshal(body, &issues)
	for _, i := range issues {
		fmt.Printf("%-36s %-20s %-18s %s\n", i.SessionID, i.Category, i.Method, i.ResolvedAt.Format(time.RFC3339))
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 100, "Max records")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}
	body, err := apiDo("GET", "/api/logs"+query, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiDo(method, path string, payload any) ([]byte, error) {
	base := envOr("DESKBOT_API_URL", "http://localhost:8090")

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("DESKBOT_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("deskbotctl — support chatbot management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat                 Interactive chat session with the bot")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  sessions list        List live sessions")
	fmt.Println("  sessions show <id>   Show a session transcript")
	fmt.Println("  sessions close <id>  Close a session")
	fmt.Println("  resolved             List bot-resolved issues (--limit)")
	fmt.Println("  logs                 Show recent daemon logs (--level, --limit)")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DESKBOT_API_URL      Daemon URL (default: http://localhost:8090)")
	fmt.Println("  DESKBOT_API_KEY      API key for authentication")
	fmt.Println("  DESKBOT_CUSTOMER_ID  Customer ID for chat sessions")
}
