package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	rootcmd "github.com/go-ports/glucowatch/cmd/glucowatch/root"
	"github.com/go-ports/glucowatch/internal/redaction"
)

func main() {
	if err := run(); err != nil {
		var r redaction.Redactor
		fmt.Fprintln(os.Stderr, r.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return rootcmd.New().ExecuteContext(ctx)
}
