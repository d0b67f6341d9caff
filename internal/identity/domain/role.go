package domain

// Role is the account class. It is always derived from the affiliation code
// at the moment of assignment, never supplied by a caller.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Classifier maps an affiliation code to a role and a human-readable
// affiliation descriptor. code is the normalized code string, or "" when the
// account declared no affiliation. Implementations must be pure: same input,
// same result, no I/O in the default implementation.
type Classifier interface {
	Classify(code string) (Role, string)
}

// SentinelClassifier classifies the single well-known sentinel code as
// Primary; every other code, and the absence of a code, is Secondary.
// Dynamic code registries plug in as alternative Classifier implementations
// selected at construction time.
type SentinelClassifier struct {
	sentinel string
}

// NewSentinelClassifier returns a Classifier whose Primary sentinel is the
// given code (normalized on construction; invalid sentinel config falls back
// to never matching).
func NewSentinelClassifier(sentinelCode string) *SentinelClassifier {
	code, err := NewAffiliationCode(sentinelCode)
	if err != nil {
		return &SentinelClassifier{}
	}
	return &SentinelClassifier{sentinel: code.String()}
}

// Classify implements Classifier.
func (c *SentinelClassifier) Classify(code string) (Role, string) {
	if code == "" {
		return RoleSecondary, "no declared affiliation"
	}
	if c.sentinel != "" && code == c.sentinel {
		return RolePrimary, "primary affiliation " + code
	}
	return RoleSecondary, "affiliate " + code
}
