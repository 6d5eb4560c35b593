package transport

// Transport opens authenticated sessions with an SMTP endpoint.
type Transport interface {
	// Connect dials host:port, negotiates STARTTLS when startTLS is true
	// (otherwise the connection is expected to be implicitly encrypted,
	// e.g. port 465), and authenticates with the given credentials.
	Connect(host string, port int, username, password string, startTLS bool) (Conn, error)
}

// Conn is a single authenticated SMTP session. It is exclusively owned by
// one caller from Connect until Close and is not safe for concurrent use.
type Conn interface {
	// Deliver transmits one raw RFC 5322 message to the given envelope
	// recipients. The envelope is independent of the message headers;
	// BCC delivery works by listing an address here without it appearing
	// in the message bytes.
	Deliver(from string, recipients []string, message []byte) error

	// Close ends the SMTP session. Called exactly once per successful
	// Connect.
	Close() error
}
