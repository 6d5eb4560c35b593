package userconfig

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/units"
	yaml "gopkg.in/yaml.v2"
)

// Default attachment budget when the config doesn't name one: 25 MiB.
const defaultAttachmentLimit int64 = 25 * 1024 * 1024

// Config represents SMTP client settings as provided by the user. Not
// meant to be used for sending email without validation via
// CheckAndSetDefaults.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// StartTLS selects STARTTLS negotiation. When false the connection is
	// assumed to be implicitly encrypted (e.g. port 465).
	StartTLS bool
	// AttachmentLimit is the total attachment budget in bytes.
	AttachmentLimit int64
}

// Parse reads a YAML client configuration, returning any parsing errors.
func Parse(r io.Reader) (Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("can't parse the client config: %v", err)
	}
	return c, nil
}

// UnmarshalYAML parses a user-provided YAML configuration, returning any
// parsing errors. The attachment limit is accepted as a human-readable
// size string such as "25MB" or "1.5GiB".
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the client config: %v", err)
	}

	c.Host = v["host"]
	c.Username = v["username"]
	c.Password = v["password"]

	p, ok := v["port"]
	if !ok {
		p = "0"
	}
	pn, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("can't parse the SMTP port as an integer: %v", err)
	}
	c.Port = pn

	// STARTTLS is opt-out, not opt-in.
	tl, ok := v["startTLS"]
	if !ok {
		tl = "true"
	}
	tb, err := strconv.ParseBool(tl)
	if err != nil {
		return fmt.Errorf("can't parse the startTLS flag as a boolean: %v", err)
	}
	c.StartTLS = tb

	if lim, ok := v["attachmentLimit"]; ok {
		n, err := units.ParseBase2Bytes(lim)
		if err != nil {
			return fmt.Errorf("can't parse the attachment limit as a byte size: %v", err)
		}
		c.AttachmentLimit = int64(n)
	}

	return nil
}

// CheckAndSetDefaults validates c and either returns a copy of c with
// default settings applied or returns an error due to an invalid
// configuration.
func (c *Config) CheckAndSetDefaults() (Config, error) {
	if c.Host == "" {
		return Config{}, errors.New(
			"user-provided config does not include an SMTP host",
		)
	}
	if c.Port < 1 || c.Port > 65535 {
		return Config{}, fmt.Errorf(
			"user-provided SMTP port %v is outside the valid port range", c.Port,
		)
	}
	if c.Username == "" || c.Password == "" {
		return Config{}, errors.New(
			"user-provided config must include a username and password",
		)
	}

	nc := *c
	if nc.AttachmentLimit == 0 {
		nc.AttachmentLimit = defaultAttachmentLimit
	}
	if nc.AttachmentLimit < 0 {
		return Config{}, errors.New("the attachment limit must be positive")
	}

	return nc, nil
}
