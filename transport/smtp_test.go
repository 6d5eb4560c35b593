package transport_test

import (
	"crypto/tls"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sendkit/sendkit/smtptest"
	"github.com/sendkit/sendkit/transport"
)

// waitForServer polls the address until something is listening so the
// client doesn't race the server goroutine's Listen call.
func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("no server listening on %v", addr)
}

// TestConnectAndDeliver is meant to test the minimal expected behavior of
// the SMTP transport--STARTTLS, AUTH, and raw message transmission--against
// an in-process server.
func TestConnectAndDeliver(t *testing.T) {
	k, c, err := smtptest.GenerateTLSFiles(t)
	if err != nil {
		t.Fatal(err)
	}
	srv := smtptest.NewInProcessServer(k, c)

	go func(srv *smtptest.InProcessServer) {
		srv.Start()
	}(srv)
	defer srv.Close()
	waitForServer(t, "localhost:2526")

	tr := transport.NewSMTP(
		// since the test server uses a self-signed cert
		transport.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
	)

	conn, err := tr.Connect("localhost", 2526, "myuser", "mypassword", true)
	if err != nil {
		t.Fatalf("unexpected error connecting to the test server: %v", err)
	}

	msg := strings.Join([]string{
		"From: me@example.com",
		"To: you@example.com",
		"Subject: transport test",
		"",
		"Hello this is my email body",
	}, "\r\n")

	// The envelope includes an address that isn't in the headers, the way
	// a BCC delivery looks on the wire.
	envelope := []string{"you@example.com", "hidden@example.com"}
	if err := conn.Deliver("me@example.com", envelope, []byte(msg)); err != nil {
		t.Fatalf("unexpected error delivering the message: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error closing the SMTP session: %v", err)
	}

	msgs := srv.Messages(0)
	if len(msgs) != 1 {
		t.Fatalf("expected to have sent one email, but sent %v instead", len(msgs))
	}
	got := msgs[0]
	if got.From != "me@example.com" {
		t.Errorf("unexpected envelope sender %v", got.From)
	}
	if len(got.Recipients) != 2 ||
		got.Recipients[0] != "you@example.com" ||
		got.Recipients[1] != "hidden@example.com" {
		t.Errorf("unexpected envelope recipients %v", got.Recipients)
	}
	if !strings.Contains(got.Body, "Hello this is my email body") {
		t.Error("the email body never reached the server")
	}
	if strings.Contains(got.Body, "hidden@example.com") {
		t.Error("an envelope-only recipient leaked into the message bytes")
	}
}
