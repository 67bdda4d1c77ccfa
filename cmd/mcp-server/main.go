// Command mcp-server serves the Session Manager over MCP on stdio.
package main

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/roasbeef/dapctl/internal/logging"
	"github.com/roasbeef/dapctl/mcp"
	"github.com/roasbeef/dapctl/wiring"
)

func main() {
	logFile, err := logging.InitFileLogger()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logFile.Close()

	mgr := wiring.NewManager(wiring.DefaultConfig())
	defer mgr.Shutdown(context.Background())

	mcpServer := mcp.NewServer(mgr)

	log.Println("starting dapctl MCP server on stdio")
	if err := server.ServeStdio(mcpServer.MCPServer()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}