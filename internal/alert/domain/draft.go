package domain

import (
	"fmt"
	"strings"
	"time"
)

// Draft is a candidate alert produced by a detector, before ids, status and
// bookkeeping timestamps are stamped on by the aggregator.
type Draft struct {
	Deployment  Deployment  `json:"deployment"`
	Kind        Kind        `json:"kind"`
	Severity    Severity    `json:"severity"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	Metadata    Metadata    `json:"-"`
}

func (d Draft) Validate() error {
	if d.Deployment != DeploymentProperty && d.Deployment != DeploymentFarm {
		return ErrInvalidDeployment
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	if !d.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, d.Severity)
	}
	if strings.TrimSpace(d.Title) == "" {
		return ErrInvalidTitle
	}
	if strings.TrimSpace(string(d.SubjectType)) == "" || strings.TrimSpace(d.SubjectID) == "" {
		return ErrInvalidSubject
	}
	return d.Metadata.Validate()
}

// Fingerprint identifies the same condition on the same subject within one
// calendar day (UTC).
func (d Draft) Fingerprint(detectedAt time.Time) string {
	return strings.Join([]string{
		string(d.Kind),
		string(d.SubjectType),
		strings.TrimSpace(d.SubjectID),
		detectedAt.UTC().Format(dateLayout),
	}, "|")
}
