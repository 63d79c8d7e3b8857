package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	// Values already exported in the environment win over .env entries.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "ask":
		runAsk()
	case "card":
		runCard()
	case "version", "--version":
		fmt.Println("dynagent " + version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dynagent - Dynatrace observability agent (A2A + MCP)

Usage:
  dynagent serve [--port PORT] [--stdio]          Start the agent (HTTP, or MCP over stdio)
  dynagent ask "<query>" [--url URL] [--key KEY]  Send a query to a running agent
  dynagent card [--url URL]                       Fetch and print an agent card
  dynagent version                                Print the version
`)
}
