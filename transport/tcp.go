package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halfpipe/httpcore/config"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type TCP struct {
	l    listener
	wg   *sync.WaitGroup
	stop *atomic.Bool
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(l listener) TCP {
	return TCP{
		l:    l,
		wg:   new(sync.WaitGroup),
		stop: new(atomic.Bool),
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr)
	return err
}

// Listen accepts connections until Stop is called, dispatching each to cb. tcp.SingleThreadMode
// serves connections one at a time on this goroutine instead of spawning one per connection;
// tcp.MaxConnections, when nonzero, bounds how many connections run concurrently, blocking new
// accepts (not new TCP handshakes) once the limit is reached.
func (t *TCP) Listen(net_ config.NET, tcp config.TCP, cb func(conn net.Conn)) error {
	var sem chan struct{}
	if tcp.MaxConnections > 0 {
		sem = make(chan struct{}, tcp.MaxConnections)
	}

	for !t.stop.Load() {
		if err := t.l.SetDeadline(wallClock().Add(net_.AcceptLoopInterruptPeriod)); err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}

			return err
		}

		serve := func(conn net.Conn) {
			t.wg.Add(1)
			cb(conn)
			_ = conn.Close()
			t.wg.Done()
		}

		if tcp.SingleThreadMode {
			serve(conn)
			continue
		}

		if sem != nil {
			sem <- struct{}{}
		}

		go func(conn net.Conn) {
			defer func() {
				if sem != nil {
					<-sem
				}
			}()

			serve(conn)
		}(conn)
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() {
	_ = t.l.Close()
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
