package message

import (
	"github.com/halfpipe/httpcore/status"
	"github.com/halfpipe/httpcore/transport"
)

// Handler processes one request and returns what the connection engine should do next. A
// handler must not block indefinitely without reading or draining the request body, since the
// engine won't advance to the next pipelined request until it returns.
type Handler func(*Request) Result

// UpgradeFunc takes ownership of a cloned transport handle after a 101 Switching Protocols
// response has been written, and runs for as long as the upgraded protocol needs the
// connection. The engine relinquishes ownership entirely: it will not read from, write to, or
// close the original connection once UpgradeFunc is invoked (spec §4.3 "Upgrading").
type UpgradeFunc func(conn transport.Client)

// resultKind distinguishes the three shapes a Handler may return (spec §9, "Handler return as a
// sum type" rather than an interface a handler could implement partially or inconsistently).
type resultKind uint8

const (
	kindRespond resultKind = iota
	kindUpgrade
	kindFail
)

// Result is the sum type a Handler returns: a Response to write back, a protocol upgrade to
// hand the connection off to, or an error carrying a status hint for the engine to turn into a
// canonical error response itself (spec §6, §9).
type Result struct {
	kind        resultKind
	response    *Response
	upgradeHdrs map[string]string
	upgradeFn   UpgradeFunc
	err         status.HTTPError
}

// Respond wraps a normal response.
func Respond(r *Response) Result {
	return Result{kind: kindRespond, response: r}
}

// SwitchProtocol requests a 101 Switching Protocols response carrying extraHeaders (typically
// at least Upgrade and Connection: Upgrade), followed by handing the cloned connection to fn.
func SwitchProtocol(extraHeaders map[string]string, fn UpgradeFunc) Result {
	return Result{kind: kindUpgrade, upgradeHdrs: extraHeaders, upgradeFn: fn}
}

// Fail wraps an error carrying an HTTP status hint, so a handler can signal failure without
// building a Response by hand (spec §6: "a Result that is either a Response...or an error value
// carrying an HTTP status hint").
func Fail(err status.HTTPError) Result {
	return Result{kind: kindFail, err: err}
}

// IsUpgrade reports whether this Result requests a protocol switch rather than an ordinary
// response.
func (r Result) IsUpgrade() bool {
	return r.kind == kindUpgrade
}

// IsFail reports whether this Result carries an error rather than a response or an upgrade.
func (r Result) IsFail() bool {
	return r.kind == kindFail
}

// Err returns the wrapped error for a kindFail Result. Only valid when IsFail is true.
func (r Result) Err() status.HTTPError {
	return r.err
}

// Response returns the wrapped response for a kindRespond Result. Only valid when IsUpgrade
// and IsFail are both false.
func (r Result) Response() *Response {
	return r.response
}

// Upgrade returns the pieces of a kindUpgrade Result: the extra response headers to send
// alongside the 101 status, and the function to hand the cloned connection to.
func (r Result) Upgrade() (headers map[string]string, fn UpgradeFunc) {
	return r.upgradeHdrs, r.upgradeFn
}
