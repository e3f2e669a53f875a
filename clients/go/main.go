// A minimal command-line client for the wireline API.
package main

import (
	"fmt"
	"os"

	"github.com/wireline-chat/wireline/clients/go/wireline"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wireline-cli <command> [args]

commands:
  register <wa_id> [name]       create an account
  send <wa_id> <to> <message>   login and send a message
  chats <wa_id>                 login and print the chat list
  thread <wa_id> <other>        login and print a thread

set WIRELINE_URL to target a non-local server`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	client := wireline.NewClient(os.Getenv("WIRELINE_URL"))

	var err error
	switch os.Args[1] {
	case "register":
		if len(os.Args) < 3 {
			usage()
		}
		name := ""
		if len(os.Args) > 3 {
			name = os.Args[3]
		}
		var acc *wireline.Account
		acc, err = client.Register(os.Args[2], name, "")
		if err == nil {
			fmt.Printf("registered %s (id %s)\n", acc.WaID, acc.ID)
		}

	case "send":
		if len(os.Args) < 5 {
			usage()
		}
		if err = client.Login(os.Args[2]); err == nil {
			var msg *wireline.Message
			msg, err = client.Send(os.Args[3], os.Args[4])
			if err == nil {
				fmt.Printf("sent %s\n", msg.ExternalID)
			}
		}

	case "chats":
		if len(os.Args) < 3 {
			usage()
		}
		if err = client.Login(os.Args[2]); err == nil {
			var chats []wireline.Conversation
			chats, err = client.ChatList()
			for _, c := range chats {
				name := c.PartnerName
				if name == "" {
					name = c.ChatPartner
				}
				fmt.Printf("%-20s %-6s %s\n", name, c.Status, c.Content)
			}
		}

	case "thread":
		if len(os.Args) < 4 {
			usage()
		}
		if err = client.Login(os.Args[2]); err == nil {
			var msgs []wireline.Message
			msgs, err = client.Thread(os.Args[3])
			for _, m := range msgs {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.From, m.Content)
			}
		}

	default:
		usage()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
