// Package sendkit builds MIME email messages and delivers them over an
// authenticated SMTP session.
//
// One Session handles one outgoing message. Construct it with the server's
// host and port, log in, compose with the chainable mutators, send, and
// log out:
//
//	s, err := sendkit.New("smtp.example.com", 587)
//	if err != nil {
//		// bad host/port/limit
//	}
//	if err := s.Login("me@example.com", password); err != nil {
//		// connection or credential problem; Login can be retried
//	}
//	s.AddRecipient("you@example.com").
//		AddCC("boss@example.com").
//		SetSubject("Quarterly numbers").
//		SetBody("<h1>All green</h1>").
//		AddAttachment("./report.pdf")
//	if err := s.Send(); err != nil {
//		// composition or delivery problem; state is preserved for a resend
//	}
//	if err := s.Logout(); err != nil {
//		// the session is closed either way
//	}
//
// Composition mutators record the first error and make the rest of the
// chain a no-op; Send (and Err) report it. Addresses are deduplicated
// across the To, CC, and BCC roles, attachments draw down a fixed size
// budget, and BCC addresses appear in the delivery envelope but never in
// the message bytes.
package sendkit
