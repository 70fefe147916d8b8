package auth

import (
	"fmt"
	"time"

	"redpost/pkg/logging"
)

// Verdict is the gate's judgement of a credential set.
type Verdict string

const (
	// VerdictMissing means no credential set exists or it holds no entries.
	VerdictMissing Verdict = "missing"
	// VerdictExpired means a load-bearing credential has passed its expiry.
	VerdictExpired Verdict = "expired"
	// VerdictIncomplete means too many required credentials are absent.
	VerdictIncomplete Verdict = "incomplete"
	// VerdictValid means the set is usable, possibly minus a few stragglers.
	VerdictValid Verdict = "valid"
)

// Usable reports whether a session initialized from the judged set has a
// realistic chance of being authenticated.
func (v Verdict) Usable() bool {
	return v == VerdictValid
}

// GateDetail carries the structured evidence behind a verdict.
type GateDetail struct {
	TotalEntries    int      `json:"total_cookies"`
	FoundRequired   []string `json:"found_critical"`
	MissingRequired []string `json:"missing_critical"`
	ExpiredEntries  []string `json:"expired_cookies"`
	Coverage        string   `json:"critical_coverage"`
}

// DefaultMissingTolerance is how many required names may be absent before
// the set is judged incomplete. The platform's session model is redundant
// enough that a couple of stragglers rarely matter.
const DefaultMissingTolerance = 2

// Gate judges persisted credential sets before any browser work is spent on
// them. Both the login flow and every publish job consult the gate
// immediately before session use.
type Gate struct {
	store     *Store
	tolerance int
	now       func() time.Time
	logger    *logging.Logger
}

// NewGate creates a gate over the given store. A negative tolerance falls
// back to the default.
func NewGate(store *Store, tolerance int, logger *logging.Logger) *Gate {
	if tolerance < 0 {
		tolerance = DefaultMissingTolerance
	}
	return &Gate{
		store:     store,
		tolerance: tolerance,
		now:       time.Now,
		logger:    logger,
	}
}

// Check loads the persisted credential set and judges it. An unreadable or
// absent file is judged missing; the gate never fails outright.
func (g *Gate) Check() (Verdict, GateDetail) {
	set, err := g.store.Load()
	if err != nil {
		if err != ErrNoCredentials {
			g.logger.Warnf("Credential load failed, treating as missing: %v", err)
		}
		return VerdictMissing, GateDetail{}
	}
	return g.Evaluate(set)
}

// Evaluate judges an already loaded credential set. Expiry of any
// load-bearing credential dominates every other signal; completeness is
// judged against the full required list with the configured tolerance.
func (g *Gate) Evaluate(set *CredentialSet) (Verdict, GateDetail) {
	if set.Empty() {
		return VerdictMissing, GateDetail{}
	}

	now := g.now()
	detail := GateDetail{TotalEntries: len(set.Cookies)}

	for _, name := range RequiredNames {
		cred, ok := set.Find(name)
		if !ok {
			detail.MissingRequired = append(detail.MissingRequired, name)
			continue
		}
		detail.FoundRequired = append(detail.FoundRequired, name)
		if cred.Expired(now) && isBasic(name) {
			detail.ExpiredEntries = append(detail.ExpiredEntries, name)
		}
	}
	detail.Coverage = fmt.Sprintf("%d/%d", len(detail.FoundRequired), len(RequiredNames))

	switch {
	case len(detail.ExpiredEntries) > 0:
		g.logger.Warnf("Credential set has expired entries: %v", detail.ExpiredEntries)
		return VerdictExpired, detail
	case len(detail.MissingRequired) > g.tolerance:
		g.logger.Warnf("Credential set is missing %d required entries: %v",
			len(detail.MissingRequired), detail.MissingRequired)
		return VerdictIncomplete, detail
	default:
		if len(detail.MissingRequired) > 0 {
			g.logger.Infof("Credential set valid, missing minor entries: %v", detail.MissingRequired)
		}
		return VerdictValid, detail
	}
}

func isBasic(name string) bool {
	for _, basic := range BasicNames {
		if name == basic {
			return true
		}
	}
	return false
}
