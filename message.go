package sendkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sendkit/sendkit/htmlbody"
)

// RFC 2045 caps encoded lines at 76 characters.
const base64LineLength = 76

// buildMessage serializes the session's accumulated state into RFC 5322
// message bytes: headers, an HTML body part, and one base64 part per
// attachment. BCC addresses are deliberately absent; they only exist in
// the delivery envelope.
func (s *Session) buildMessage() ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	writeHeader := func(key, value string) {
		fmt.Fprintf(&buf, "%v: %v\r\n", key, value)
	}

	writeHeader("From", s.sender)
	writeHeader("To", strings.Join(s.recipients, ", "))
	if len(s.cc) > 0 {
		writeHeader("Cc", strings.Join(s.cc, ", "))
	}
	writeHeader("Date", s.timestamp.Format(time.RFC1123Z))
	writeHeader("Subject", mime.QEncoding.Encode("UTF-8", s.subject))
	writeHeader("Message-ID", fmt.Sprintf("<%v@%v>", uuid.NewString(), s.host))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="UTF-8"`},
	})
	if err != nil {
		return nil, fmt.Errorf("can't create the body part: %v", err)
	}
	if _, err := io.WriteString(body, htmlbody.Ensure(s.body)); err != nil {
		return nil, fmt.Errorf("can't write the body part: %v", err)
	}

	for _, a := range s.attachments {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("can't create the part for %v: %v", a.Filename, err)
		}
		if err := writeBase64(part, a.Content); err != nil {
			return nil, fmt.Errorf("can't encode %v: %v", a.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("can't finish the multipart message: %v", err)
	}

	return buf.Bytes(), nil
}

// writeBase64 writes content to w as line-wrapped base64.
func writeBase64(w io.Writer, content []byte) error {
	enc := base64.StdEncoding.EncodeToString(content)
	for len(enc) > 0 {
		n := base64LineLength
		if n > len(enc) {
			n = len(enc)
		}
		if _, err := io.WriteString(w, enc[:n]+"\r\n"); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
