package transport

// transport is responsible for the SMTP wire protocol: connecting to the
// server, negotiating TLS and authentication, and transmitting raw message
// bytes to a set of envelope recipients. It deals in opaque bytes and has
// no opinion about message contents; building a well-formed MIME message is
// the caller's job.
