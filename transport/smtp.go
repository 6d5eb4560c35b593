package transport

import (
	"crypto/tls"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

// SMTP is the gomail-backed Transport implementation. The zero value is
// usable; options exist for tests and for servers with unusual TLS setups.
type SMTP struct {
	tlsConfig *tls.Config
	log       zerolog.Logger
}

// Option configures an SMTP transport.
type Option func(*SMTP)

// WithTLSConfig overrides the TLS configuration used for STARTTLS or
// implicit TLS. Mostly useful for talking to servers with self-signed
// certificates, e.g. in tests.
func WithTLSConfig(c *tls.Config) Option {
	return func(t *SMTP) {
		t.tlsConfig = c
	}
}

// WithLogger attaches a logger to the transport. Without it the transport
// is silent.
func WithLogger(l zerolog.Logger) Option {
	return func(t *SMTP) {
		t.log = l
	}
}

// NewSMTP returns an SMTP transport ready for Connect.
func NewSMTP(opts ...Option) *SMTP {
	t := &SMTP{
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Connect implements Transport. With startTLS the connection is opened in
// plaintext and upgraded before authentication; otherwise the dialer speaks
// TLS from the first byte.
func (t *SMTP) Connect(host string, port int, username, password string, startTLS bool) (Conn, error) {
	d := gomail.NewDialer(host, port, username, password)
	d.SSL = !startTLS
	d.TLSConfig = t.tlsConfig

	sc, err := d.Dial()
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %v:%v", host, port)
	}

	t.log.Info().
		Str("host", host).
		Int("port", port).
		Bool("startTLS", startTLS).
		Msg("authenticated with the SMTP server")

	return &smtpConn{sc: sc, log: t.log}, nil
}

type smtpConn struct {
	sc  gomail.SendCloser
	log zerolog.Logger
}

// rawMessage adapts preassembled message bytes to the io.WriterTo that
// gomail expects.
type rawMessage []byte

func (m rawMessage) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m)
	return int64(n), err
}

// Deliver implements Conn.
func (c *smtpConn) Deliver(from string, recipients []string, message []byte) error {
	if err := c.sc.Send(from, recipients, rawMessage(message)); err != nil {
		return errors.Wrap(err, "transmitting message")
	}

	c.log.Debug().
		Str("from", from).
		Int("envelopeSize", len(recipients)).
		Int("messageBytes", len(message)).
		Msg("message accepted by the SMTP server")

	return nil
}

// Close implements Conn.
func (c *smtpConn) Close() error {
	return errors.Wrap(c.sc.Close(), "closing the SMTP session")
}
