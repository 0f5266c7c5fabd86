// Package ingest contains the email ingestion frontends: an SMTP content
// filter that classifies mail inline between an MTA and its delivery
// agent, and a CLI frontend for one-shot classification.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Triage result headers stamped onto every relayed message
const (
	headerCategory     = "X-Triage-Category"
	headerConfidence   = "X-Triage-Confidence"
	headerImportance   = "X-Triage-Importance"
	headerDisposition  = "X-Triage-Disposition"
	headerProcessingID = "X-Triage-Processing-ID"
	headerError        = "X-Triage-Error"
)

// SMTPConfig holds the SMTP ingest settings
type SMTPConfig struct {
	// ListenAddr is the address the filter accepts mail on
	ListenAddr string

	// RelayAddr and RelayPort locate the downstream MTA re-injection port
	RelayAddr string
	RelayPort int

	// RelayEnabled disables re-injection when false (classify-only mode)
	RelayEnabled bool

	// RejectSpam rejects messages at SMTP time when the ensemble is
	// confident enough to auto-act on a spam classification
	RejectSpam bool

	// DefaultAccount scopes preferences when the recipient cannot be used
	DefaultAccount string

	// MaxMessageBytes caps the accepted message size
	MaxMessageBytes int64
}

// SMTPIngest is an SMTP content filter. The MTA hands each message to the
// filter, which classifies it, stamps X-Triage-* headers and re-injects
// the message downstream.
type SMTPIngest struct {
	service *core.TriageService
	logger  *zap.Logger
	cfg     SMTPConfig
	server  *smtp.Server
}

// NewSMTPIngest creates a new SMTP ingest frontend
func NewSMTPIngest(service *core.TriageService, cfg SMTPConfig, logger *zap.Logger) *SMTPIngest {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 30 * 1024 * 1024
	}
	return &SMTPIngest{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start starts the SMTP server
func (f *SMTPIngest) Start() error {
	f.server = smtp.NewServer(&smtpBackend{ingest: f})

	f.server.Addr = f.cfg.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.cfg.MaxMessageBytes
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP ingest starting", zap.String("address", f.cfg.ListenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (f *SMTPIngest) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an email directly, bypassing the SMTP transport.
// Used by tests and direct API callers.
func (f *SMTPIngest) ProcessEmail(ctx context.Context, email *core.Email) (*core.EnsembleResult, error) {
	return f.service.ClassifyEmail(ctx, email)
}

// sendDownstream re-injects the processed message into the MTA using go-smtp
func (f *SMTPIngest) sendDownstream(sender string, recipients []string, emailData []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", f.cfg.RelayAddr, f.cfg.RelayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The message has already been accepted at this point
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingest *SMTPIngest
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		ingest:     b.ingest,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingest     *SMTPIngest
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message and relays it with result headers
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.ingest.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.ingest.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.ingest.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	email := s.buildEmail(msg, textContent)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, classifyErr := s.ingest.service.ClassifyEmail(ctx, email)
	if classifyErr != nil {
		s.ingest.logger.Error("Failed to classify email",
			zap.Error(classifyErr),
			zap.String("sender", email.From),
			zap.String("sender_domain", email.Domain()))
	}

	if classifyErr == nil && s.ingest.cfg.RejectSpam &&
		result.Category == core.CategorySpam && result.Disposition == core.DispositionAutoAct {
		s.ingest.logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.String("sender_domain", email.Domain()),
			zap.Float64("confidence", result.Confidence))
		return fmt.Errorf("550 rejected as spam (confidence: %.2f)", result.Confidence)
	}

	modified := s.stampHeaders(msg, rawData, result, classifyErr)

	if s.ingest.cfg.RelayEnabled {
		if err := s.ingest.sendDownstream(s.sender, s.recipients, modified); err != nil {
			s.ingest.logger.Error("Failed to relay email downstream",
				zap.Error(err),
				zap.String("sender", email.From))
			return err
		}
	} else {
		s.ingest.logger.Warn("Relay disabled, classified message dropped",
			zap.String("email_id", email.ID))
	}

	if classifyErr == nil {
		s.ingest.logger.Info("Processed email",
			zap.String("from", email.From),
			zap.String("sender_domain", email.Domain()),
			zap.String("category", string(result.Category)),
			zap.String("disposition", string(result.Disposition)),
			zap.Float64("confidence", result.Confidence))
	}
	return nil
}

// buildEmail converts the parsed SMTP message into the internal email form
func (s *smtpSession) buildEmail(msg *mail.Message, textContent string) *core.Email {
	email := &core.Email{
		ID:         uuid.New().String(),
		Account:    s.account(),
		From:       s.sender,
		To:         append([]string(nil), s.recipients...),
		Body:       textContent,
		Headers:    make(map[string][]string),
		ReceivedAt: time.Now(),
	}

	for key, values := range msg.Header {
		email.Headers[key] = values
		if strings.EqualFold(key, "Subject") && len(values) > 0 {
			subject, err := decodeEncodedHeader(values[0])
			if err != nil {
				subject = values[0]
			}
			email.Subject = subject
		}
	}
	return email
}

// account scopes learned preferences: the first recipient mailbox, or the
// configured default when delivery metadata is missing
func (s *smtpSession) account() string {
	if len(s.recipients) > 0 {
		return strings.ToLower(s.recipients[0])
	}
	return s.ingest.cfg.DefaultAccount
}

// stampHeaders rebuilds the message with X-Triage-* headers prepended,
// preserving the original headers and raw body bytes
func (s *smtpSession) stampHeaders(msg *mail.Message, rawData []byte, result *core.EnsembleResult, classifyErr error) []byte {
	var out bytes.Buffer

	if classifyErr != nil {
		fmt.Fprintf(&out, "%s: %s\r\n", headerError, classifyErr.Error())
	} else {
		category := string(result.Category)
		if result.Unclassified || category == "" {
			// Downstream filters need a matchable value, not an empty header
			category = "unclassified"
		}
		fmt.Fprintf(&out, "%s: %s\r\n", headerCategory, category)
		fmt.Fprintf(&out, "%s: %.4f\r\n", headerConfidence, result.Confidence)
		fmt.Fprintf(&out, "%s: %.4f\r\n", headerImportance, result.Importance)
		fmt.Fprintf(&out, "%s: %s\r\n", headerDisposition, result.Disposition)
		fmt.Fprintf(&out, "%s: %s\r\n", headerProcessingID, result.ProcessingID)
	}

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(&out, "%s: %s\r\n", key, value)
		}
	}
	fmt.Fprintf(&out, "\r\n")

	// Append the original body bytes unchanged so MIME parts and
	// attachments survive the round trip
	if idx := bytes.Index(rawData, []byte("\r\n\r\n")); idx != -1 {
		out.Write(rawData[idx+4:])
	} else if idx := bytes.Index(rawData, []byte("\n\n")); idx != -1 {
		out.Write(rawData[idx+2:])
	} else if body, err := io.ReadAll(msg.Body); err == nil {
		out.Write(body)
	}
	return out.Bytes()
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
