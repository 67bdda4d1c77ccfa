// Command tui launches the interactive session console.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/roasbeef/dapctl/internal/logging"
	"github.com/roasbeef/dapctl/tui"
	"github.com/roasbeef/dapctl/wiring"
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "dapctl tui requires an interactive terminal")
		os.Exit(1)
	}

	logFile, err := logging.InitFileLogger()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logFile.Close()

	mgr := wiring.NewManager(wiring.DefaultConfig())
	defer mgr.Shutdown(context.Background())

	if err := tui.Run(context.Background(), mgr); err != nil {
		log.Fatalf("TUI failed: %v", err)
	}
}