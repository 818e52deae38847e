// Command ws_chat is a terminal probe for the socket transport: it joins an
// interview room with a session token and relays stdin lines as messages.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/interviewhub/server/pkg/client"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "session token (from /api/login)")
	room := flag.String("room", "", "room to join")
	flag.Parse()

	if *token == "" || *room == "" {
		return fmt.Errorf("both -token and -room are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)

	c := client.NewSocketClient(*addr, client.WithHeader(header))
	defer c.Disconnect()

	c.OnMessage(func(msg client.ChatMessage) {
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp, msg.From.Name, msg.Content)
	})
	c.OnError(func(errMsg string) {
		log.Printf("server error: %s", errMsg)
	})
	c.OnConnect(func() {
		fmt.Printf("Connected to %s in room %s\n", *addr, *room)
	})
	c.OnDisconnect(func() {
		log.Printf("disconnected, retrying in background")
	})

	if err := c.Connect(ctx, *room); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := c.SendMessage(ctx, text); err != nil {
				log.Printf("send error: %v", err)
			}
		}
	}
}
