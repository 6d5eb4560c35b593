package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Message is one email received by the in-process server: the envelope as
// the client transmitted it plus the raw message bytes. Keeping the
// envelope separate from the body lets tests verify that BCC addresses
// were delivered to without ever appearing in the message itself.
type Message struct {
	From       string
	Recipients []string
	Body       string
	created    time.Time
}

// MessageStore retains received messages in memory for comparison against
// a test's expected output. Designed to be goroutine safe since we don't
// know how many connections will hit the server at once.
type MessageStore struct {
	mu       sync.Mutex
	messages []Message
}

func (ms *MessageStore) save(m Message) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	m.created = time.Now()
	ms.messages = append(ms.messages, m)
}

// Messages returns a copy of every message received on or after epoch
// nanoseconds t. Pass 0 for all of them.
func (ms *MessageStore) Messages(t int64) []Message {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	r := make([]Message, 0, len(ms.messages))
	for _, m := range ms.messages {
		if m.created.UnixNano() >= t {
			r = append(r, m)
		}
	}
	return r
}

// Backend implements smtp.Backend. It hands each authenticated connection
// a fresh session writing into the shared MessageStore.
type Backend struct {
	store *MessageStore
}

// Login implements smtp.Backend. Any non-empty username/password is fine,
// since we don't want to couple this with specific test configurations.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username == "" || password == "" {
		return nil, errors.New("no username or password provided")
	}
	return &serverSession{store: be.store}, nil
}

// AnonymousLogin implements smtp.Backend. Not supported since we want to
// enforce AUTH.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

// serverSession implements smtp.Session for one connection, accumulating
// the envelope until the DATA phase completes.
type serverSession struct {
	store      *MessageStore
	from       string
	recipients []string
}

// Mail implements smtp.Session.
func (s *serverSession) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt implements smtp.Session.
func (s *serverSession) Rcpt(to string) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data implements smtp.Session. Stores the message in memory for retrieval
// at the end of the test.
func (s *serverSession) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 100 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	str := &strings.Builder{}
	if _, err := str.Write(buf); err != nil {
		return err
	}

	s.store.save(Message{
		From:       s.from,
		Recipients: s.recipients,
		Body:       str.String(),
	})
	return nil
}

// Reset implements smtp.Session, abandoning the in-flight envelope.
func (s *serverSession) Reset() {
	s.from = ""
	s.recipients = nil
}

// Logout implements smtp.Session. No-op here.
func (s *serverSession) Logout() error { return nil }

// InProcessServer is an SMTP server that runs in the same process as the
// test suite, letting us inspect sent emails. You must initialize this
// via NewInProcessServer.
type InProcessServer struct {
	*smtp.Server
	*MessageStore
}

// NewInProcessServer creates an InProcessServer, including configuring its
// SMTP server to store incoming messages in memory. Must provide the paths
// to the key and cert used for TLS. The cert must be a root cert.
func NewInProcessServer(keypath string, certpath string) *InProcessServer {
	store := &MessageStore{}

	srv := smtp.NewServer(&Backend{store: store})

	srv.Addr = ":2526" // arbitrary
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = false // need AUTH here
	srv.AuthDisabled = false      // need AUTH here
	// Strict is undocumented, but it looks like it enforces <address> syntax
	// in messages:
	// https://github.com/emersion/go-smtp/blob/f92bf7f1a25777bcdaa28a142b1cd1a54b74c8f4/conn.go#L321-L325
	srv.Strict = true

	cert, err := tls.LoadX509KeyPair(certpath, keypath)

	// No way to carry on without a cert, so we panic. We're in a test
	// suite, so this should be fine.
	if err != nil {
		panic(err)
	}

	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	return &InProcessServer{
		Server:       srv,
		MessageStore: store,
	}
}

// Start starts the test server. Blocking.
func (is *InProcessServer) Start() error {
	// Not using ListenAndServeTLS--the client should upgrade the connection
	// to TLS
	return is.Server.ListenAndServe()
}

// Close shuts down the test server daemon. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
}

// Address returns the host:port of the test SMTP server.
func (is *InProcessServer) Address() string {
	return is.Server.Domain + is.Server.Addr
}
