package transport

import (
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/halfpipe/httpcore/config"
)

// Unix is a Unix-domain-socket transport, following the same accept-loop shape as TCP but
// binding a *net.UnixListener and removing the socket file on close so a restart doesn't fail
// with "address already in use".
type Unix struct {
	l    *net.UnixListener
	path string
	wg   *sync.WaitGroup
	stop *atomic.Bool
}

func NewUnix() *Unix {
	return &Unix{wg: new(sync.WaitGroup), stop: new(atomic.Bool)}
}

func (u *Unix) Bind(path string) error {
	_ = os.Remove(path)

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return err
	}

	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return err
	}

	u.l = l
	u.path = path
	return nil
}

func (u *Unix) Listen(net_ config.NET, tcp config.TCP, cb func(conn net.Conn)) error {
	var sem chan struct{}
	if tcp.MaxConnections > 0 {
		sem = make(chan struct{}, tcp.MaxConnections)
	}

	for !u.stop.Load() {
		if err := u.l.SetDeadline(wallClock().Add(net_.AcceptLoopInterruptPeriod)); err != nil {
			return err
		}

		conn, err := u.l.AcceptUnix()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}

			return err
		}

		serve := func(conn net.Conn) {
			u.wg.Add(1)
			cb(conn)
			_ = conn.Close()
			u.wg.Done()
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

func (u *Unix) Stop() {
	u.stop.Store(true)
}

func (u *Unix) Close() {
	_ = u.l.Close()
	_ = os.Remove(u.path)
}

func (u *Unix) Wait() {
	u.wg.Wait()
}
