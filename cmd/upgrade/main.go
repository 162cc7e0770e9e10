// Command upgrade demonstrates switching a connection out of HTTP entirely: a request for
// "Upgrade: tunnel" gets a 101 response, then the raw connection is handed to a loop that
// echoes back whatever it receives, standing in for a protocol the library has no built-in
// support for.
package main

import (
	"io"
	"log"

	"github.com/halfpipe/httpcore"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/transport"
)

func main() {
	app := httpcore.New(nil)

	handler := func(req *message.Request) message.Result {
		if req.Upgrade != "tunnel" {
			return message.Respond(message.NewResponse().WithString("send Upgrade: tunnel to open a tunnel\n"))
		}

		headers := map[string]string{
			"Connection": "upgrade",
			"Upgrade":    "tunnel",
		}

		return message.SwitchProtocol(headers, func(conn transport.Client) {
			defer conn.Close()

			for {
				data, err := conn.Read()
				if len(data) > 0 {
					if _, werr := conn.Write(data); werr != nil {
						return
					}
				}
				if err == io.EOF || err != nil {
					return
				}
			}
		})
	}

	app.Listen(":8080", handler)

	log.Println("listening on :8080")
	if err := app.Serve(); err != nil {
		log.Fatal(err)
	}
}
