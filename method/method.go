// Package method holds the closed set of request methods the codec recognises.
package method

// Method is a parsed request-line token. Spec-wise, method is opaque; we still enum the common
// ones so the engine can cheaply ask "is this method allowed a request body by convention" and
// "must responses to this method omit a body" without string comparisons on the hot path.
type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH

	count
)

func (m Method) String() string {
	if int(m) >= len(names) {
		return "UNKNOWN"
	}

	return names[m]
}

var names = [count]string{
	Unknown: "UNKNOWN",
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	CONNECT: "CONNECT",
	OPTIONS: "OPTIONS",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

type entry struct {
	method Method
	origin string
}

// lut is indexed by the first two bytes of the token, following the teacher's
// http/method/methods.go trick: almost every HTTP method differs by its first two bytes.
var lut = buildLUT(GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH)

func buildLUT(methods ...Method) (table [256][256]entry) {
	for _, m := range methods {
		s := m.String()
		table[s[0]][s[1]] = entry{method: m, origin: s}
	}

	return table
}

// Parse returns Unknown unless str is byte-for-byte one of the known method tokens.
func Parse(str string) Method {
	if len(str) < 2 {
		return Unknown
	}

	e := lut[str[0]][str[1]]
	if e.origin != str {
		return Unknown
	}

	return e.method
}

// Bodiless reports whether a response to this method must never carry a body (HEAD), per
// spec §4.3 "For status 1xx, 204, 304, or HEAD requests, write no body".
func (m Method) Bodiless() bool {
	return m == HEAD
}
