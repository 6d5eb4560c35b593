package sendkit

import "github.com/sendkit/sendkit/userconfig"

// FromConfig creates a Session from a validated user configuration (see
// userconfig.Config.CheckAndSetDefaults). Login still takes the
// credentials explicitly so they don't linger in Session state.
func FromConfig(c userconfig.Config, opts ...Option) (*Session, error) {
	base := []Option{WithFilesizeLimit(c.AttachmentLimit)}
	if !c.StartTLS {
		base = append(base, WithImplicitTLS())
	}
	return New(c.Host, c.Port, append(base, opts...)...)
}
