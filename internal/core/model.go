package core

import (
	"strings"
	"time"
)

// Category is a triage category assigned to an email
type Category string

const (
	CategoryImportant      Category = "important"
	CategoryActionRequired Category = "action_required"
	CategoryInformational  Category = "informational"
	CategoryNewsletter     Category = "newsletter"
	CategoryTransactional  Category = "transactional"
	CategoryAutoReply      Category = "auto_reply"
	CategoryNormal         Category = "normal"
	CategorySpam           Category = "spam"
	CategoryBlocked        Category = "blocked"
)

// AllCategories is the closed set of categories a scorer may emit
var AllCategories = []Category{
	CategoryImportant,
	CategoryActionRequired,
	CategoryInformational,
	CategoryNewsletter,
	CategoryTransactional,
	CategoryAutoReply,
	CategoryNormal,
	CategorySpam,
	CategoryBlocked,
}

// IsValidCategory reports whether c is in the allowed category set
func IsValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ScoreSource identifies which scoring layer produced a LayerScore
type ScoreSource string

const (
	SourceRule     ScoreSource = "rule"
	SourceHistory  ScoreSource = "history"
	SourceSemantic ScoreSource = "semantic"
)

// Email represents a normalized email message.
// It is assumed to be deduplicated and decoded by the retrieval side.
type Email struct {
	ID         string
	Account    string
	From       string
	FromDomain string
	To         []string
	Subject    string
	Body       string
	Headers    map[string][]string
	ReceivedAt time.Time
}

// Domain returns the sender domain, deriving it from the address when the
// retrieval side did not set FromDomain.
func (e *Email) Domain() string {
	if e.FromDomain != "" {
		return strings.ToLower(e.FromDomain)
	}
	parts := strings.Split(e.From, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

// Header returns the first value of a header, or ""
func (e *Email) Header(name string) string {
	for key, values := range e.Headers {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// LayerScore is the opinion of a single scoring layer about one email
type LayerScore struct {
	Source     ScoreSource
	Category   Category
	Importance float64
	Confidence float64
	Reasoning  string
	Signals    []string

	// Semantic layer only
	Intent           string
	ResponseRequired bool
}

// SemanticAnalysis is the structured output of a generative model
type SemanticAnalysis struct {
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"`
	Importance       float64  `json:"importance"`
	Reasoning        string   `json:"reasoning"`
	Intent           string   `json:"intent"`
	ResponseRequired bool     `json:"response_required"`
	ModelUsed        string   `json:"-"`
}

// ScoringWeights holds the per-layer ensemble weights. The three weights
// must sum to 1.0 within WeightEpsilon.
type ScoringWeights struct {
	Rule     float64
	History  float64
	Semantic float64
}

// WeightEpsilon is the tolerance for the weight-sum invariant
const WeightEpsilon = 1e-6

// Validate checks that all weights are non-negative and sum to 1.0
func (w ScoringWeights) Validate() error {
	if w.Rule < 0 || w.History < 0 || w.Semantic < 0 {
		return &ValidationError{Source: "weights", Reason: "weights must be non-negative"}
	}
	sum := w.Rule + w.History + w.Semantic
	if sum < 1.0-WeightEpsilon || sum > 1.0+WeightEpsilon {
		return &ValidationError{Source: "weights", Reason: "weights must sum to 1.0"}
	}
	return nil
}

// Weight returns the configured weight for a source
func (w ScoringWeights) Weight(source ScoreSource) float64 {
	switch source {
	case SourceRule:
		return w.Rule
	case SourceHistory:
		return w.History
	case SourceSemantic:
		return w.Semantic
	}
	return 0
}

// AgreementLevel describes how far the participating scorers agreed
type AgreementLevel string

const (
	AgreementFull    AgreementLevel = "full"
	AgreementPartial AgreementLevel = "partial"
	AgreementNone    AgreementLevel = "none"
)

// Disagreement records the condition where participating scorers proposed
// different categories for the same email
type Disagreement struct {
	EmailID    string
	Categories map[ScoreSource]Category
	ObservedAt time.Time
}

// EnsembleResult is the combined classification decision for one email.
// It is immutable once created; corrections are new FeedbackRecords.
type EnsembleResult struct {
	ProcessingID        string
	EmailID             string
	Category            Category
	SecondaryCategories []Category
	Confidence          float64
	Importance          float64
	Contributions       []LayerScore
	Agreement           AgreementLevel
	Disagreement        *Disagreement
	SemanticSkipped     bool
	Unclassified        bool
	Disposition         Disposition
	ProcessingTime      time.Duration
	ClassifiedAt        time.Time
}

// TrustLevel biases or overrides the ensemble outcome for a sender/domain
type TrustLevel string

const (
	TrustTrusted    TrustLevel = "trusted"
	TrustNeutral    TrustLevel = "neutral"
	TrustSuspicious TrustLevel = "suspicious"
	TrustBlocked    TrustLevel = "blocked"
)

// SenderPreference holds the learned per-sender statistics, scoped to an
// account. Created on first observation, decayed by EMA, never deleted.
type SenderPreference struct {
	Account string
	Sender  string

	EmailsSeen int64
	Replied    int64
	Archived   int64
	Deleted    int64

	ReplyRate   float64
	ArchiveRate float64
	DeleteRate  float64

	AvgImportance   float64
	AvgReplyLatency time.Duration

	PreferredCategory *Category
	ForcedCategory    *Category
	Trust             TrustLevel
	AllowedCategories []Category
	MutedCategories   []Category

	FirstSeen   time.Time
	LastUpdated time.Time
}

// DomainPreference is the domain-level fallback for senders without enough
// individual history
type DomainPreference struct {
	Account string
	Domain  string

	EmailsSeen int64
	Replied    int64
	Archived   int64
	Deleted    int64

	ReplyRate   float64
	ArchiveRate float64
	DeleteRate  float64

	AvgImportance   float64
	AvgReplyLatency time.Duration

	Trust TrustLevel

	FirstSeen   time.Time
	LastUpdated time.Time
}

// FeedbackAction is the user behavior a FeedbackRecord captures
type FeedbackAction string

const (
	ActionReply      FeedbackAction = "reply"
	ActionArchive    FeedbackAction = "archive"
	ActionDelete     FeedbackAction = "delete"
	ActionStar       FeedbackAction = "star"
	ActionCorrection FeedbackAction = "correction"
)

// InferredImportance maps a user action to the importance it implies
func (a FeedbackAction) InferredImportance() float64 {
	switch a {
	case ActionReply:
		return 0.85
	case ActionStar:
		return 0.95
	case ActionArchive:
		return 0.25
	case ActionDelete:
		return 0.05
	case ActionCorrection:
		return 0.50
	}
	return 0.50
}

// FeedbackRecord is an append-only record of one observed user action.
// Each record triggers exactly one learner update.
type FeedbackRecord struct {
	EmailID      string
	Account      string
	Sender       string
	Action FeedbackAction

	// Importance is the observed importance of the email. Nil means the
	// caller did not measure one and it is inferred from the action.
	Importance *float64

	Category     *Category
	ReplyLatency time.Duration
	Timestamp    time.Time
}

// Disposition is the routing outcome assigned by the review router
type Disposition string

const (
	DispositionAutoAct       Disposition = "auto_act"
	DispositionReview        Disposition = "review"
	DispositionLowConfidence Disposition = "low_confidence"
)

// ReviewStatus is the lifecycle state of a queued item
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewModified ReviewStatus = "modified"
)

// QueueItem is an email awaiting human review. Terminal once approved or
// rejected.
type QueueItem struct {
	ID                string
	EmailID           string
	Account           string
	Sender            string
	Suggested         *EnsembleResult
	Disposition       Disposition
	Status            ReviewStatus
	CorrectedCategory *Category
	Urgent            bool
	EnqueuedAt        time.Time
	ResolvedAt        *time.Time
}

// Clamp01 clamps v to the [0,1] range
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
