// Command chunkedupload accepts a chunked-encoded PUT, streaming it chunk by chunk instead of
// buffering the whole body, and echoes back the trailer headers a client sent after the final
// chunk (e.g. a trailing checksum).
package main

import (
	"fmt"
	"io"
	"log"

	"github.com/halfpipe/httpcore"
	"github.com/halfpipe/httpcore/message"
)

func main() {
	app := httpcore.New(nil)

	handler := func(req *message.Request) message.Result {
		var total int64

		for {
			chunk, err := req.Body.ReadChunk()
			total += int64(len(chunk))

			if err == io.EOF {
				break
			}
			if err != nil {
				return message.Respond(message.NewResponse().
					WithCode(400).
					WithString(fmt.Sprintf("upload failed: %s\n", err)))
			}
		}

		resp := message.NewResponse().WithString(fmt.Sprintf("received %d bytes\n", total))

		for _, pair := range req.Trailers().Expose() {
			resp = resp.WithHeader("Echo-"+pair.Key, pair.Value)
		}

		return message.Respond(resp)
	}

	app.Listen(":8080", handler)

	log.Println("listening on :8080")
	if err := app.Serve(); err != nil {
		log.Fatal(err)
	}
}
