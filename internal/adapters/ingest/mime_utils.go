package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// charsetReader converts a MIME part or encoded-word payload from the
// declared charset into UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeEncodedHeader decodes RFC 2047 encoded-words in a header value
func decodeEncodedHeader(value string) (string, error) {
	dec := mime.WordDecoder{CharsetReader: charsetReader}
	return dec.DecodeHeader(value)
}

// decodeTransferEncoding unwraps the Content-Transfer-Encoding of a part
func decodeTransferEncoding(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodePartCharset converts a text part to UTF-8 based on the charset
// parameter of its Content-Type. Unknown charsets pass through unchanged.
func decodePartCharset(r io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	charset, ok := params["charset"]
	if !ok || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		return r
	}
	decoded, err := charsetReader(charset, r)
	if err != nil {
		return r
	}
	return decoded
}

// extractTextFromMessage extracts the text content from an email message.
// For multipart messages it concatenates the text/plain parts, decoding
// each part's transfer encoding and charset.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return readSinglePart(msg.Body, contentType, msg.Header.Get("Content-Transfer-Encoding"))
	}

	boundary, ok := params["boundary"]
	if !ok {
		return readSinglePart(msg.Body, contentType, msg.Header.Get("Content-Transfer-Encoding"))
	}

	mr := multipart.NewReader(msg.Body, boundary)
	var textContent bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Return whatever text was collected before the malformed part
			if textContent.Len() > 0 {
				return textContent.String(), nil
			}
			return "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		partType := part.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(partType), "text/plain") {
			// Nested multiparts and attachments are skipped; the scorers
			// only look at the plain text body
			continue
		}

		body := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
		body = decodePartCharset(body, partType)
		partBytes, err := io.ReadAll(body)
		if err != nil {
			continue
		}
		textContent.Write(partBytes)
		textContent.WriteString("\n")
	}

	if textContent.Len() > 0 {
		return textContent.String(), nil
	}
	return "[no text content found in multipart message]", nil
}

func readSinglePart(body io.Reader, contentType, transferEncoding string) (string, error) {
	r := decodeTransferEncoding(body, transferEncoding)
	r = decodePartCharset(r, contentType)
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(data), nil
}
