package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// readlineWriter wraps log output to work with readline. log writes from any
// goroutine while the console worker swaps the instance, so rl is guarded.
type readlineWriter struct {
	mu  sync.Mutex
	rl  *readline.Instance
	out io.Writer // os.Stderr when nil
}

func (w *readlineWriter) setInstance(rl *readline.Instance) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rl = rl
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.out
	if out == nil {
		out = os.Stderr
	}

	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = out.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// Global readline writer for log output
var rlWriter = &readlineWriter{}

// readlineLoop runs the readline loop, sending lines to the channel
func readlineLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	rl *readline.Instance,
	lineChan chan<- string,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel() // Ctrl+C pressed, shutdown the app
			return
		}
		if err != nil {
			return // EOF or other error
		}
		line = strings.TrimSpace(line)
		if line != "" {
			lineChan <- line
		}
	}
}

// getHistoryFilePath returns the path for the console history file
func getHistoryFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // No history if we can't find home
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	chargectlCache := filepath.Join(cacheDir, "chargectl")
	_ = os.MkdirAll(chargectlCache, 0750)
	return filepath.Join(chargectlCache, "console_history")
}

// consoleCompleter offers the command names on tab
var consoleCompleter = readline.NewPrefixCompleter(
	readline.PcItem("charge"),
	readline.PcItem("cleanup"),
	readline.PcItem("cancel"),
	readline.PcItem("confirm"),
	readline.PcItem("cw"),
	readline.PcItem("ccw"),
	readline.PcItem("zero"),
	readline.PcItem("send"),
	readline.PcItem("weight"),
	readline.PcItem("ports"),
	readline.PcItem("help"),
)

// consoleWorker reads operator commands from the terminal and forwards them to the controller
func consoleWorker(ctx context.Context, cancel context.CancelFunc, commandChan chan<- Command) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "> ",
		HistoryFile:  getHistoryFilePath(),
		AutoComplete: consoleCompleter,
	})
	if err != nil {
		log.Printf("Console worker: readline init failed: %v", err)
		return
	}
	defer func() {
		rlWriter.setInstance(nil)
		_ = rl.Close()
	}()

	// Redirect log output through readline-aware writer
	rlWriter.setInstance(rl)
	log.SetOutput(rlWriter)
	defer log.SetOutput(os.Stderr)

	log.Println("Console worker started (type 'help' for commands)")

	lineChan := make(chan string, 10)
	go readlineLoop(ctx, cancel, rl, lineChan)

	for {
		select {
		case line := <-lineChan:
			cmd, err := ParseCommand(line)
			if err != nil {
				log.Printf("Error: %v", err)
				continue
			}
			select {
			case commandChan <- cmd:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			log.Println("Console worker stopped")
			return
		}
	}
}
