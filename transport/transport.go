package transport

import (
	"net"

	"github.com/halfpipe/httpcore/config"
)

type Transport interface {
	Bind(addr string) error
	Listen(net config.NET, tcp config.TCP, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}
