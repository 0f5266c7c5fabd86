// Package guardrail implements the blocking content filter applied before
// any email is sent to a generative model. A match short-circuits
// classification without contacting the provider.
package guardrail

import (
	"regexp"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Decision is the three-valued outcome of a guardrail check
type Decision int

const (
	// Proceed means the email may be sent to the model
	Proceed Decision = iota
	// Blocked means classification short-circuits to the verdict category
	Blocked
	// Errored means the filter itself failed; callers decide the policy
	Errored
)

// Verdict is the result of checking one email
type Verdict struct {
	Decision Decision
	Category core.Category
	Reason   string
}

// Patterns for personally identifiable financial data
var (
	cardNumber = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
	iban       = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)
	ssn        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// phishingPhrases are heuristics for credential-harvesting content
var phishingPhrases = []string{
	"verify your account immediately",
	"your account has been suspended",
	"confirm your password",
	"unusual sign-in activity",
	"update your payment information",
	"your account will be closed",
}

// Filter is the blocking content filter. Stateless and safe for concurrent
// use.
type Filter struct {
	logger *zap.Logger
}

// NewFilter creates a new content filter
func NewFilter(logger *zap.Logger) *Filter {
	return &Filter{logger: logger}
}

// Check inspects an email before model invocation
func (f *Filter) Check(email *core.Email) Verdict {
	text := email.Subject + "\n" + email.Body

	if cardNumber.MatchString(text) || iban.MatchString(text) || ssn.MatchString(text) {
		f.logger.Info("Guardrail blocked email containing financial identifiers",
			zap.String("email_id", email.ID))
		return Verdict{
			Decision: Blocked,
			Category: core.CategoryBlocked,
			Reason:   "contains personally identifiable financial data",
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range phishingPhrases {
		if strings.Contains(lower, phrase) {
			f.logger.Info("Guardrail blocked likely phishing email",
				zap.String("email_id", email.ID),
				zap.String("phrase", phrase))
			return Verdict{
				Decision: Blocked,
				Category: core.CategorySpam,
				Reason:   "phishing heuristic matched: " + phrase,
			}
		}
	}

	return Verdict{Decision: Proceed}
}
