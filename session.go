package sendkit

import (
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sendkit/sendkit/transport"
)

// DefaultFilesizeLimit is the attachment budget a Session starts with
// unless overridden: 25 MiB, the ceiling most commercial SMTP providers
// enforce per message.
const DefaultFilesizeLimit int64 = 25 * 1024 * 1024

// insecurePort is plaintext-only SMTP. Logins here are refused outright.
const insecurePort = 25

// State is the lifecycle position of a Session. It only moves forward:
// UNAUTHENTICATED -> AUTHENTICATED -> CLOSED.
type State int

const (
	// StateUnauthenticated is the initial state. Only Login can leave it.
	StateUnauthenticated State = iota

	// StateAuthenticated means the transport is connected and credentials
	// were accepted. Recipients, attachments, and Send are legal here.
	StateAuthenticated

	// StateClosed is terminal. Every operation on a closed Session fails
	// with a StateError.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Attachment is one file accepted into a Session, keyed by its normalized
// base filename.
type Attachment struct {
	Filename string
	Content  []byte
}

// Session accumulates the parts of one outgoing email and delivers it over
// an authenticated SMTP session. Create one Session per message with New,
// compose with the chainable mutators, then Send and Logout.
//
// Composition mutators record the first error they hit and turn subsequent
// calls into no-ops, so a chain can be written without interleaved error
// checks; inspect Err (or the error from Send) afterward. The three
// network operations, Login, Send, and Logout, return their errors
// directly.
//
// A Session is not safe for concurrent use.
type Session struct {
	host string
	port int

	filesizeLimit     int64
	availableFilesize int64

	recipients []string
	cc         []string
	bcc        []string

	subject string
	body    string

	attachments []Attachment

	timestamp time.Time
	sender    string
	state     State

	err error

	startTLS   bool
	transport  transport.Transport
	conn       transport.Conn
	fs         afero.Fs
	log        zerolog.Logger
	validators map[Scope]ValidatorFunc
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithFilesizeLimit overrides the default 25 MiB attachment budget.
func WithFilesizeLimit(limit int64) Option {
	return func(s *Session) {
		s.filesizeLimit = limit
	}
}

// WithTransport swaps the SMTP transport. The default talks real SMTP;
// tests inject fakes here.
func WithTransport(t transport.Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

// WithFilesystem swaps the filesystem attachments are read from. The
// default is the OS filesystem.
func WithFilesystem(fs afero.Fs) Option {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithLogger attaches a logger. Without it the Session is silent.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithImplicitTLS makes Login assume the connection is encrypted from the
// first byte (e.g. port 465) instead of negotiating STARTTLS.
func WithImplicitTLS() Option {
	return func(s *Session) {
		s.startTLS = false
	}
}

// WithValidator replaces the address validator for every scope.
func WithValidator(v ValidatorFunc) Option {
	return func(s *Session) {
		for _, scope := range []Scope{ScopeAuthor, ScopeRecipients, ScopeCC, ScopeBCC} {
			s.validators[scope] = v
		}
	}
}

// WithScopedValidator replaces the address validator for one scope only.
func WithScopedValidator(scope Scope, v ValidatorFunc) Option {
	return func(s *Session) {
		s.validators[scope] = v
	}
}

// New creates a Session for the SMTP endpoint at host:port. No network I/O
// happens here; that waits for Login. Returns a ParameterError when the
// port is outside the valid range or the configured filesize limit isn't
// positive.
func New(host string, port int, opts ...Option) (*Session, error) {
	s := &Session{
		host:          host,
		port:          port,
		filesizeLimit: DefaultFilesizeLimit,
		subject:       "<no subject>",
		body:          "<no body>",
		timestamp:     time.Now(),
		state:         StateUnauthenticated,
		startTLS:      true,
		transport:     transportDefault(),
		fs:            afero.NewOsFs(),
		log:           zerolog.Nop(),
		validators: map[Scope]ValidatorFunc{
			ScopeAuthor:     IsValidEmail,
			ScopeRecipients: IsValidEmail,
			ScopeCC:         IsValidEmail,
			ScopeBCC:        IsValidEmail,
		},
	}

	for _, o := range opts {
		o(s)
	}

	if host == "" {
		return nil, &ParameterError{Param: "host", Reason: "no SMTP server specified"}
	}
	if port < 1 || port > 65535 {
		return nil, &ParameterError{Param: "port", Reason: "outside the valid port range"}
	}
	if s.filesizeLimit <= 0 {
		return nil, &ParameterError{Param: "filesize limit", Reason: "must be positive"}
	}

	s.availableFilesize = s.filesizeLimit

	return s, nil
}

func transportDefault() transport.Transport {
	return transport.NewSMTP()
}

// Login connects to the SMTP endpoint, negotiates encryption, and
// authenticates. On success the username becomes the message's From
// address and the session moves to AUTHENTICATED. On failure the session
// stays UNAUTHENTICATED, so Login can be retried with corrected
// credentials.
func (s *Session) Login(username, password string) error {
	if s.state != StateUnauthenticated {
		return &StateError{Op: "login", State: s.state}
	}
	if !s.validators[ScopeAuthor](username) {
		return &AddressError{Address: username}
	}
	if s.port == insecurePort {
		return &AuthError{Host: s.host, Port: s.port, Err: ErrInsecurePort}
	}

	conn, err := s.transport.Connect(s.host, s.port, username, password, s.startTLS)
	if err != nil {
		return &AuthError{Host: s.host, Port: s.port, Err: err}
	}

	s.conn = conn
	s.sender = username
	s.state = StateAuthenticated

	s.log.Info().
		Str("host", s.host).
		Int("port", s.port).
		Str("sender", s.sender).
		Msg("logged in to the SMTP server")

	return nil
}

// fail records the first composition error and makes later mutators no-ops.
func (s *Session) fail(err error) *Session {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Err returns the first error recorded by a composition mutator, or nil.
// Send returns the same error, so checking both is never necessary.
func (s *Session) Err() error {
	return s.err
}

// ClearErr acknowledges and discards a recorded composition error,
// unblocking the mutators and Send. Accumulated state is untouched, so the
// caller can correct the offending input (say, attach a smaller file) and
// carry on with the same Session.
func (s *Session) ClearErr() error {
	err := s.err
	s.err = nil
	return err
}

// hasAddress reports whether the address is already spoken for in any of
// the three recipient roles.
func (s *Session) hasAddress(address string) bool {
	for _, set := range [][]string{s.recipients, s.cc, s.bcc} {
		for _, a := range set {
			if a == address {
				return true
			}
		}
	}
	return false
}

func (s *Session) addAddress(scope Scope, address string, dst *[]string) *Session {
	if s.err != nil {
		return s
	}
	if s.state != StateAuthenticated {
		return s.fail(&StateError{Op: "add " + string(scope) + " address", State: s.state})
	}
	if !s.validators[scope](address) {
		return s.fail(&AddressError{Address: address})
	}
	if s.hasAddress(address) {
		// Cross-set dedup: an address already used in any role stays
		// where it first landed.
		s.log.Debug().Str("address", address).Msg("address already present, skipping")
		return s
	}

	*dst = append(*dst, address)

	s.log.Debug().
		Str("address", address).
		Str("scope", string(scope)).
		Msg("added an address")

	return s
}

// AddRecipient adds a primary ("To") recipient. A no-op if the address is
// already a recipient in any role.
func (s *Session) AddRecipient(address string) *Session {
	return s.addAddress(ScopeRecipients, address, &s.recipients)
}

// AddCC adds a carbon-copy recipient. A no-op if the address is already a
// recipient in any role.
func (s *Session) AddCC(address string) *Session {
	return s.addAddress(ScopeCC, address, &s.cc)
}

// AddBCC adds a blind carbon-copy recipient: the address receives the
// message but never appears in its headers. A no-op if the address is
// already a recipient in any role.
func (s *Session) AddBCC(address string) *Session {
	return s.addAddress(ScopeBCC, address, &s.bcc)
}

// SetSubject overwrites the message subject. Last write wins.
func (s *Session) SetSubject(subject string) *Session {
	if s.err != nil {
		return s
	}
	if s.state == StateClosed {
		return s.fail(&StateError{Op: "set subject", State: s.state})
	}
	s.subject = subject
	return s
}

// SetBody overwrites the message body. Last write wins. The body is
// treated as HTML; plain text is wrapped in a default style at send time
// (see the htmlbody package).
func (s *Session) SetBody(body string) *Session {
	if s.err != nil {
		return s
	}
	if s.state == StateClosed {
		return s.fail(&StateError{Op: "set body", State: s.state})
	}
	s.body = body
	return s
}

// AddAttachment reads the file at the given path and schedules it for
// inclusion in the message. The file must be a regular, non-empty file
// that fits in the session's remaining attachment budget. Adding a file
// whose name matches an existing attachment is a silent no-op.
func (s *Session) AddAttachment(filePath string) *Session {
	if s.err != nil {
		return s
	}
	if s.state == StateClosed {
		return s.fail(&StateError{Op: "add attachment", State: s.state})
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return s.fail(&AttachmentError{Filename: filePath, Err: err})
	}

	// The stored label uses forward slashes regardless of platform so the
	// same inputs always yield the same message bytes.
	name := path.Base(filepath.ToSlash(abs))

	for _, a := range s.attachments {
		if a.Filename == name {
			s.log.Debug().Str("filename", name).Msg("attachment already present, skipping")
			return s
		}
	}

	info, err := s.fs.Stat(abs)
	if err != nil {
		return s.fail(&AttachmentError{Filename: name, Err: err})
	}
	if !info.Mode().IsRegular() {
		return s.fail(&AttachmentError{Filename: name, Err: ErrNotRegularFile})
	}
	if info.Size() == 0 {
		return s.fail(&AttachmentError{Filename: name, Err: ErrEmptyFile})
	}
	if info.Size() > s.availableFilesize {
		return s.fail(&AttachmentError{Filename: name, Err: ErrAttachmentTooLarge})
	}

	content, err := afero.ReadFile(s.fs, abs)
	if err != nil {
		return s.fail(&AttachmentError{Filename: name, Err: err})
	}

	s.attachments = append(s.attachments, Attachment{Filename: name, Content: content})
	s.availableFilesize -= info.Size()

	s.log.Debug().
		Str("filename", name).
		Int64("size", info.Size()).
		Int64("remainingBudget", s.availableFilesize).
		Msg("accepted an attachment")

	return s
}

// Send assembles the MIME message and hands it to the transport. The
// delivery envelope is the union of the To, CC, and BCC sets; the message
// headers list only To and CC. A failed Send leaves all accumulated state
// in place so the caller can correct the problem and resend.
func (s *Session) Send() error {
	if s.state != StateAuthenticated {
		return &StateError{Op: "send", State: s.state}
	}
	if s.err != nil {
		return s.err
	}
	if len(s.recipients) == 0 {
		return &SendError{Err: ErrNoRecipients}
	}

	msg, err := s.buildMessage()
	if err != nil {
		return &SendError{Err: err}
	}

	envelope := s.envelope()
	if err := s.conn.Deliver(s.sender, envelope, msg); err != nil {
		return &SendError{Err: err}
	}

	s.log.Info().
		Int("envelopeSize", len(envelope)).
		Int("attachments", len(s.attachments)).
		Msg("sent the message")

	return nil
}

// Logout closes the SMTP session and permanently retires the Session.
// This must be the terminal call: everything afterward fails with a
// StateError.
func (s *Session) Logout() error {
	if s.state != StateAuthenticated {
		return &StateError{Op: "logout", State: s.state}
	}

	// The session is done even if the close handshake fails; the server
	// will reap the connection on its own.
	s.state = StateClosed
	err := s.conn.Close()
	s.conn = nil

	s.log.Info().Str("host", s.host).Msg("logged out of the SMTP server")

	return err
}

// envelope returns the full delivery recipient list. The three sets are
// mutually exclusive by construction, so concatenation is already
// duplicate-free.
func (s *Session) envelope() []string {
	e := make([]string, 0, len(s.recipients)+len(s.cc)+len(s.bcc))
	e = append(e, s.recipients...)
	e = append(e, s.cc...)
	e = append(e, s.bcc...)
	return e
}

// Host returns the SMTP host the Session was created with.
func (s *Session) Host() string { return s.host }

// Port returns the SMTP port the Session was created with.
func (s *Session) Port() int { return s.port }

// Sender returns the authenticated sender address, or "" before login.
func (s *Session) Sender() string { return s.sender }

// Subject returns the current subject.
func (s *Session) Subject() string { return s.subject }

// Body returns the current body.
func (s *Session) Body() string { return s.body }

// State returns the session's lifecycle position.
func (s *Session) State() State { return s.state }

// Timestamp returns the instant the Session was created, which becomes the
// message's Date header.
func (s *Session) Timestamp() time.Time { return s.timestamp }

// FilesizeLimit returns the total attachment budget.
func (s *Session) FilesizeLimit() int64 { return s.filesizeLimit }

// AvailableFilesize returns the attachment budget not yet consumed.
func (s *Session) AvailableFilesize() int64 { return s.availableFilesize }

// Recipients returns a copy of the primary recipient list in insertion
// order.
func (s *Session) Recipients() []string {
	return append([]string(nil), s.recipients...)
}

// CC returns a copy of the CC list in insertion order.
func (s *Session) CC() []string {
	return append([]string(nil), s.cc...)
}

// BCC returns a copy of the BCC list in insertion order.
func (s *Session) BCC() []string {
	return append([]string(nil), s.bcc...)
}

// Attachments returns a copy of the accepted attachment list in insertion
// order.
func (s *Session) Attachments() []Attachment {
	return append([]Attachment(nil), s.attachments...)
}
