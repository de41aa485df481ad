/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/penumbra/engine"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/testbed"
)

func main() {
	configPath := flag.String("config", "penumbra.toml", "path of the engine configuration")
	flag.Parse()

	e, err := engine.New(testbed.NewTestGame(), *configPath)
	if err != nil {
		core.LogError("failed to create the engine: %s", err.Error())
		os.Exit(1)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize the engine: %s", err.Error())
		_ = e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		// capture sigterm and other system call here
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
	if runErr != nil {
		os.Exit(1)
	}
}
