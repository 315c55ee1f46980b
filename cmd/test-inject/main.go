// Command test-inject is a manual test for transcript delivery.
// It waits 3 seconds, then types or pastes Japanese test text.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/gostt-live/internal/inject"
)

func main() {
	method := flag.String("method", "type", "inject method: type or paste")
	text := flag.String("text", "こんにちは、gostt-live です。", "text to deliver")
	flag.Parse()

	inj, err := inject.New(*method)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Will inject %q using %q method in 3 seconds...\n", *text, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	if err := inj.Inject(*text); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
