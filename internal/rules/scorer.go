// Package rules implements the deterministic pattern-matching scorer. It
// tests fixed keyword, domain and header pattern sets and never raises an
// error out of the engine.
package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Fixed per-category confidences. These are constants of the rule set, not
// computed values.
const (
	spamConfidence          = 0.95
	autoReplyConfidence     = 0.90
	newsletterConfidence    = 0.85
	transactionalConfidence = 0.80
)

var spamKeywords = []string{
	"viagra",
	"lottery",
	"you have won",
	"winner",
	"gewinnspiel",
	"gratis",
	"free money",
	"click here now",
	"act now",
	"limited time offer",
	"100% free",
	"no obligation",
	"wire transfer",
	"inheritance",
	"casino bonus",
	"miracle cure",
	"weight loss guaranteed",
}

var spamDomainPatterns = []string{
	"deals.",
	"promo.",
	"offers.",
	"win-",
	"prize",
}

var spamSenderPrefixes = []string{
	"promo@",
	"offers@",
	"deals@",
	"winner@",
}

var newsletterKeywords = []string{
	"unsubscribe",
	"newsletter",
	"view this email in your browser",
	"manage your subscription",
	"email preferences",
}

var transactionalKeywords = []string{
	"order confirmation",
	"your receipt",
	"invoice",
	"password reset",
	"verification code",
	"shipping confirmation",
	"payment received",
}

var autoReplySubjects = []string{
	"out of office",
	"automatic reply",
	"auto-reply",
	"autoreply",
	"abwesenheitsnotiz",
}

var (
	excessivePunctuation = regexp.MustCompile(`[!?]{3,}`)
	moneyAmount          = regexp.MustCompile(`[$€£]\s?\d{3,}`)
)

// Scorer is the deterministic rule layer. It is stateless and safe for
// concurrent use.
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a new rule scorer
func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Source identifies the rule layer
func (s *Scorer) Source() core.ScoreSource {
	return core.SourceRule
}

// Score matches the email against the fixed pattern sets. Spam and
// newsletter need at least two independent signals; an auto-reply header is
// a single strong signal. Any internal failure degrades to an abstain.
func (s *Scorer) Score(ctx context.Context, email *core.Email) (score *core.LayerScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Rule scorer panicked, abstaining",
				zap.String("email_id", email.ID),
				zap.Any("panic", r))
			score, err = nil, core.ErrAbstain
		}
	}()

	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Body)
	sender := strings.ToLower(email.From)
	domain := email.Domain()

	// Auto-reply: the RFC 3834 header alone is decisive
	if autoSubmitted := email.Header("Auto-Submitted"); autoSubmitted != "" && !strings.EqualFold(autoSubmitted, "no") {
		return s.match(core.CategoryAutoReply, autoReplyConfidence, 0.10,
			"auto-submitted header present",
			[]string{"header:auto-submitted"}), nil
	}
	for _, prefix := range autoReplySubjects {
		if strings.Contains(subject, prefix) {
			return s.match(core.CategoryAutoReply, autoReplyConfidence, 0.10,
				"auto-reply subject pattern",
				[]string{"subject:" + prefix}), nil
		}
	}

	if signals := s.spamSignals(email.Subject, subject, body, sender, domain); len(signals) >= 2 {
		return s.match(core.CategorySpam, spamConfidence, 0.02,
			fmt.Sprintf("%d spam signals matched", len(signals)), signals), nil
	}

	if signals := s.newsletterSignals(email, subject, body); len(signals) >= 2 {
		return s.match(core.CategoryNewsletter, newsletterConfidence, 0.20,
			fmt.Sprintf("%d newsletter signals matched", len(signals)), signals), nil
	}

	if signals := s.transactionalSignals(subject, body, sender); len(signals) >= 2 {
		return s.match(core.CategoryTransactional, transactionalConfidence, 0.45,
			fmt.Sprintf("%d transactional signals matched", len(signals)), signals), nil
	}

	return nil, core.ErrAbstain
}

func (s *Scorer) match(category core.Category, confidence, importance float64, reasoning string, signals []string) *core.LayerScore {
	return &core.LayerScore{
		Source:     core.SourceRule,
		Category:   category,
		Confidence: confidence,
		Importance: importance,
		Reasoning:  reasoning,
		Signals:    signals,
	}
}

// spamSignals collects independent spam indicators; each matched keyword or
// pattern counts as one signal
func (s *Scorer) spamSignals(rawSubject, subject, body, sender, domain string) []string {
	var signals []string
	text := subject + " " + body
	for _, keyword := range spamKeywords {
		if strings.Contains(text, keyword) {
			signals = append(signals, "keyword:"+keyword)
		}
	}
	if excessivePunctuation.MatchString(subject) {
		signals = append(signals, "subject:excessive-punctuation")
	}
	if isShouting(rawSubject) {
		signals = append(signals, "subject:all-caps")
	}
	if moneyAmount.MatchString(text) {
		signals = append(signals, "body:money-amount")
	}
	for _, pattern := range spamDomainPatterns {
		if strings.Contains(domain, pattern) {
			signals = append(signals, "domain:"+pattern)
		}
	}
	for _, prefix := range spamSenderPrefixes {
		if strings.HasPrefix(sender, prefix) {
			signals = append(signals, "sender:"+prefix)
		}
	}
	return signals
}

func (s *Scorer) newsletterSignals(email *core.Email, subject, body string) []string {
	var signals []string
	if email.Header("List-Unsubscribe") != "" {
		signals = append(signals, "header:list-unsubscribe")
	}
	if email.Header("List-Id") != "" {
		signals = append(signals, "header:list-id")
	}
	if precedence := strings.ToLower(email.Header("Precedence")); precedence == "bulk" || precedence == "list" {
		signals = append(signals, "header:precedence-"+precedence)
	}
	for _, keyword := range newsletterKeywords {
		if strings.Contains(body, keyword) || strings.Contains(subject, keyword) {
			signals = append(signals, "keyword:"+keyword)
		}
	}
	return signals
}

func (s *Scorer) transactionalSignals(subject, body, sender string) []string {
	var signals []string
	for _, keyword := range transactionalKeywords {
		if strings.Contains(subject, keyword) || strings.Contains(body, keyword) {
			signals = append(signals, "keyword:"+keyword)
		}
	}
	if strings.HasPrefix(sender, "noreply@") || strings.HasPrefix(sender, "no-reply@") {
		signals = append(signals, "sender:noreply")
	}
	return signals
}

// isShouting reports whether a subject is mostly upper-case letters
func isShouting(subject string) bool {
	var letters, upper int
	for _, r := range subject {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 8 && float64(upper)/float64(letters) > 0.8
}
