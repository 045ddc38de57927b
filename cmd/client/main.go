// Terminal client for manual testing: registers against a running server,
// renders presence snapshots as a table and relays stdin lines as direct
// messages ("recipient: text").
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"relay-lab/domain/event"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"RELAY_SERVER_ADDR,default=localhost:5000"`
	Token         string `env:"RELAY_TOKEN,required=true"`
	UserID        string `env:"RELAY_USER_ID,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := fmt.Sprintf("ws://%s/ws?token=%s", config.ServerAddress, config.Token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if err := send(conn, event.NameRegisterUser, config.UserID); err != nil {
		return exitRuntime, err
	}
	log.Info(fmt.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit)...",
		config.ServerAddress, config.UserID))

	// Stdin loop: "recipient: text" becomes a send-message event.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			to, text, ok := strings.Cut(scanner.Text(), ":")
			if !ok {
				color.Yellow.Println("format: recipient: text")
				continue
			}
			msg := event.SendMessage{
				From: config.UserID,
				To:   strings.TrimSpace(to),
				Text: strings.TrimSpace(text),
			}
			if err := send(conn, event.NameSendMessage, msg); err != nil {
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection error: %w", err)
		}

		var envelope event.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			color.Red.Printf("unreadable event: %s\n", raw)
			continue
		}
		render(envelope)
	}
}

func send(conn *websocket.Conn, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(event.Envelope{Event: name, Data: data})
}

func render(envelope event.Envelope) {
	switch envelope.Event {
	case event.NameOnlineUsers:
		var users []string
		if err := json.Unmarshal(envelope.Data, &users); err != nil {
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Online users"})
		for _, user := range users {
			table.Append([]string{user})
		}
		table.Render()

	case event.NameReceiveMessage:
		var msg event.ReceiveMessage
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			return
		}
		color.Green.Printf("[%s] %s: %s\n",
			msg.Timestamp.Format(time.TimeOnly), msg.From, msg.Text)

	case event.NameMessageError:
		var msgErr event.MessageError
		if err := json.Unmarshal(envelope.Data, &msgErr); err != nil {
			return
		}
		color.Red.Printf("delivery to %s failed: %s\n", msgErr.To, msgErr.Error)

	case event.NameEventRejected:
		var rejected event.EventRejected
		if err := json.Unmarshal(envelope.Data, &rejected); err != nil {
			return
		}
		color.Yellow.Printf("rejected %q: %s\n", rejected.Event, rejected.Reason)

	default:
		color.Gray.Printf("unknown event %q\n", envelope.Event)
	}
}
