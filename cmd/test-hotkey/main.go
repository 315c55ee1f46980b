// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press Ctrl+Shift+R (record) or Ctrl+Shift+E (switch engine)
// to see events. Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode hold|toggle]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/gostt-live/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "toggle", "hotkey mode: hold or toggle")
	flag.Parse()

	keys := []string{"ctrl", "shift", "r"}
	switchKeys := []string{"ctrl", "shift", "e"}
	fmt.Printf("Listening for %s (record) and %s (switch) in %q mode...\n",
		hotkey.Describe(keys), hotkey.Describe(switchKeys), *mode)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(keys, switchKeys, *mode)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventStart:
				fmt.Println(">>> START  (hold pressed)")
			case hotkey.EventStop:
				fmt.Println("<<< FINISH (hold released)")
			case hotkey.EventToggle:
				fmt.Println("<>> TOGGLE")
			case hotkey.EventSwitch:
				fmt.Println("=== SWITCH engine")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
