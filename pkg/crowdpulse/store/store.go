package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
)

// Repository persists submissions and the presenter's featured override.
//
// Listen methods invoke fn once with the current state, then again after
// every change, until ctx is cancelled or the returned Unsubscribe is called.
// Callbacks for one listener are never run concurrently.
type Repository interface {
	Close() error

	// Submissions
	Create(ctx context.Context, s Submission) (string, error)
	Get(ctx context.Context, id string) (Submission, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Submission, error)
	ListenByStatus(ctx context.Context, fn func([]Submission), statuses ...Status) (Unsubscribe, error)
	UpdateStatus(ctx context.Context, id string, status Status) error

	// Featured override
	SetFeaturedOverride(ctx context.Context, s Submission) error
	ClearFeaturedOverride(ctx context.Context) error
	GetFeaturedOverride(ctx context.Context) (*Submission, error)
	ListenForOverride(ctx context.Context, fn func(*Submission)) (Unsubscribe, error)
}

// Unsubscribe stops a listener. It is safe to call more than once.
type Unsubscribe func()

// Status is a submission's moderation state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFeatured Status = "featured"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFeatured:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", internalerr.ErrInvalidInput, v)
	}
	return s, nil
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusFeatured},
	StatusFeatured: {StatusApproved, StatusPending},
}

// CheckTransition returns internalerr.ErrInvalidTransition unless moving
// from one status to the other is allowed. Staying put is always allowed.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", internalerr.ErrInvalidInput, to)
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", internalerr.ErrInvalidTransition, from, to)
}

// Submission is one audience comment with its analysis.
type Submission struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Theme          string    `json:"theme"`
	Sentiment      string    `json:"sentiment"`
	AnalysisSource string    `json:"analysisSource"`
	KeyTerms       []string  `json:"keyTerms"`
	KeyPhrases     []string  `json:"keyPhrases"`
	Confidence     float64   `json:"confidence"`
	Status         Status    `json:"status"`
}

// Clone returns a copy that shares no slices with s.
func (s Submission) Clone() Submission {
	out := s
	out.KeyTerms = append([]string(nil), s.KeyTerms...)
	out.KeyPhrases = append([]string(nil), s.KeyPhrases...)
	return out
}

// Validate checks the fields required to create a submission.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: submission text is empty", internalerr.ErrInvalidInput)
	}
	if s.Status != "" && !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", internalerr.ErrInvalidInput, s.Status)
	}
	return nil
}

// HasStatus reports whether status is one of statuses.
func HasStatus(status Status, statuses []Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
