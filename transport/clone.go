package transport

import (
	"net"
	"os"
	"syscall"
)

// cloneConn duplicates the file descriptor backing conn and wraps it in a fresh net.Conn
// sharing the same socket, following the original implementation's Connection::try_clone: TCP
// and Unix sockets support it (a plain fd dup), a TLS session doesn't get one here at all,
// since crypto/tls doesn't expose its raw fd (see TLS.Bind's tlsAdapter).
func cloneConn(conn net.Conn) (net.Conn, bool) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, false
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}

	var (
		dupFd  int
		dupErr error
	)

	err = raw.Control(func(fd uintptr) {
		dupFd, dupErr = syscall.Dup(int(fd))
	})
	if err != nil || dupErr != nil {
		return nil, false
	}

	f := os.NewFile(uintptr(dupFd), "")
	defer f.Close()

	cloned, err := net.FileConn(f)
	if err != nil {
		return nil, false
	}

	return cloned, true
}
