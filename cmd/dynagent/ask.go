package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/okhotin/dynagent/internal/a2a"
)

// runAsk sends one query to a running agent over A2A JSON-RPC and prints
// the response.
func runAsk() {
	query := firstPositionalArg()
	if query == "" {
		fmt.Fprintln(os.Stderr, `usage: dynagent ask "<query>" [--url URL] [--key KEY]`)
		os.Exit(1)
	}

	client := a2a.NewClient(targetURL(), getFlagValue("--key"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := client.Send(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

// runCard fetches and prints an agent card.
func runCard() {
	client := a2a.NewClient(targetURL(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	card, err := client.FetchCard(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(card)
}

func targetURL() string {
	if u := getFlagValue("--url"); u != "" {
		return u
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	return "http://localhost:" + port
}

// firstPositionalArg returns the first argument after the subcommand that
// is neither a flag nor a flag's value.
func firstPositionalArg() string {
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--") {
			if !strings.Contains(a, "=") && i+1 < len(args) {
				i++
			}
			continue
		}
		return a
	}
	return ""
}
