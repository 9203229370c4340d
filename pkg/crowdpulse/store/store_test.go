package store

import (
	"errors"
	"testing"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusApproved, StatusFeatured, true},
		{StatusFeatured, StatusApproved, true},
		{StatusFeatured, StatusPending, true},
		{StatusApproved, StatusApproved, true},
		{StatusPending, StatusFeatured, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusRejected, false},
	}

	for _, tt := range tests {
		err := CheckTransition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, internalerr.ErrInvalidTransition) {
			t.Errorf("%s -> %s: err = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
	}

	if err := CheckTransition(StatusPending, Status("archived")); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("unknown target err = %v, want ErrInvalidInput", err)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Featured ")
	if err != nil || s != StatusFeatured {
		t.Errorf("ParseStatus = %q, %v", s, err)
	}
	if _, err := ParseStatus("draft"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("ParseStatus(draft) err = %v", err)
	}
}

func TestSubmissionValidateAndClone(t *testing.T) {
	if err := (Submission{Text: "  "}).Validate(); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("empty text err = %v", err)
	}

	s := Submission{Text: "hello", KeyTerms: []string{"a"}, KeyPhrases: []string{"b c"}}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	c := s.Clone()
	c.KeyTerms[0] = "changed"
	if s.KeyTerms[0] != "a" {
		t.Error("Clone should not share key terms")
	}
}
