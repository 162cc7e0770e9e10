// Command jsonecho decodes a JSON request body and re-encodes it in compact form, exercising a
// fully-buffered body read alongside a JSON codec rather than treating the body as opaque
// bytes.
package main

import (
	"log"

	"github.com/halfpipe/httpcore"
	"github.com/halfpipe/httpcore/message"
)

func main() {
	app := httpcore.New(nil)

	handler := func(req *message.Request) message.Result {
		var decoded interface{}
		if err := req.Body.JSON(&decoded); err != nil {
			return message.Respond(message.NewResponse().
				WithCode(400).
				WithString("invalid JSON\n"))
		}

		return message.Respond(message.NewResponse().JSON(decoded))
	}

	app.Listen(":8080", handler)

	log.Println("listening on :8080")
	if err := app.Serve(); err != nil {
		log.Fatal(err)
	}
}
