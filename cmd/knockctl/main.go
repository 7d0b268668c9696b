package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danmuck/relayctl/internal/logging"
	"github.com/danmuck/relayctl/internal/protocol"
)

// knockctl is an interactive relay client for manual testing: it registers an
// address, prints everything the server relays to it, and turns stdin
// commands into protocol messages.
//
// Commands:
//
//	lookup <address>
//	knock <address> <proposedTime>
//	accept <propId>
//	decline <propId>
//	counter <propId> <counterTime>
//	quit
func main() {
	serverURL := flag.String("server", "ws://127.0.0.1:10000/ws", "relay WebSocket URL")
	address := flag.String("address", "", "address to register")
	name := flag.String("name", "", "display name to register")
	flag.Parse()

	logging.ConfigureRuntime()

	if strings.TrimSpace(*address) == "" || strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "knockctl: -address and -name are required")
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "knockctl: dial %s: %v\n", *serverURL, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.Register{
		Type:    protocol.TypeRegisterPresence,
		Address: *address,
		Name:    *name,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "knockctl: register: %v\n", err)
		os.Exit(1)
	}

	go printInbound(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, quit := parseCommand(line, *address, *name)
		if quit {
			return
		}
		if msg == nil {
			fmt.Fprintf(os.Stderr, "knockctl: unrecognized command %q\n", line)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			fmt.Fprintf(os.Stderr, "knockctl: write: %v\n", err)
			return
		}
	}
}

func parseCommand(line, address, name string) (any, bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return nil, true
	case "lookup":
		if len(fields) != 2 {
			return nil, false
		}
		return protocol.Lookup{Type: protocol.TypeLookupAddress, Query: fields[1]}, false
	case "knock":
		if len(fields) != 3 {
			return nil, false
		}
		return protocol.SendProposal{
			Type:         protocol.TypeSendProposal,
			ToAddress:    fields[1],
			FromAddress:  address,
			FromName:     name,
			ProposedTime: fields[2],
		}, false
	case "accept", "decline":
		if len(fields) != 2 {
			return nil, false
		}
		action := strings.ToUpper(fields[0])
		return protocol.RespondToProposal{
			Type:   protocol.TypeRespondToProposal,
			PropID: fields[1],
			Action: action,
		}, false
	case "counter":
		if len(fields) != 3 {
			return nil, false
		}
		return protocol.RespondToProposal{
			Type:        protocol.TypeRespondToProposal,
			PropID:      fields[1],
			Action:      "COUNTER",
			CounterTime: fields[2],
		}, false
	}
	return nil, false
}

func printInbound(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "knockctl: connection closed: %v\n", err)
			os.Exit(0)
		}
		var pretty map[string]any
		if err := json.Unmarshal(raw, &pretty); err != nil {
			continue
		}
		fmt.Printf("[%s] %s\n", time.Now().Format(time.RFC3339), raw)
	}
}
