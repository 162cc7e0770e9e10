// Command helloworld starts a plain HTTP server responding "Hello, world!" to every request,
// the smallest possible use of the engine.
package main

import (
	"log"

	"github.com/halfpipe/httpcore"
	"github.com/halfpipe/httpcore/message"
)

func main() {
	app := httpcore.New(nil)

	handler := func(req *message.Request) message.Result {
		return message.Respond(message.NewResponse().WithString("Hello, world!\n"))
	}

	app.Listen(":8080", handler)

	log.Println("listening on :8080")
	if err := app.Serve(); err != nil {
		log.Fatal(err)
	}
}
