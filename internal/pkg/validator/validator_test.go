package validator

import (
	"errors"
	"strings"
	"testing"
)

type setupRequest struct {
	UserEmail  string `json:"userEmail" validate:"omitempty,email"`
	Role       string `json:"role" validate:"required,oneof=trader researcher analyst"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Score      *int   `json:"aiScore" validate:"omitempty,min=0,max=10"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()
	score := 11
	err := v.Validate(&setupRequest{UserEmail: "not-an-email", Role: "quant", Score: &score})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Message
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 failed fields, got %+v", verr.Fields)
	}
	if got["userEmail"] != "userEmail must be a valid email address" {
		t.Fatalf("unexpected email message %q", got["userEmail"])
	}
	if got["role"] != "role must be one of: trader, researcher, analyst" {
		t.Fatalf("unexpected role message %q", got["role"])
	}
	if got["difficulty"] != "difficulty is required" {
		t.Fatalf("unexpected difficulty message %q", got["difficulty"])
	}
	if got["aiScore"] != "aiScore must be at most 10" {
		t.Fatalf("unexpected score message %q", got["aiScore"])
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Fatalf("expected joined messages, got %q", err.Error())
	}
}

func TestValidate_AcceptsValidAndOptional(t *testing.T) {
	zero := 0
	if err := Default().Validate(&setupRequest{Role: "analyst", Difficulty: "hard", Score: &zero}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestVar_NamesTheField(t *testing.T) {
	err := Default().Var("email", "jane@", "required,email")
	var verr *Error
	if !errors.As(err, &verr) || verr.Fields[0].Field != "email" {
		t.Fatalf("expected email field error, got %v", err)
	}
	if err := Default().Var("email", "jane@example.com", "required,email"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
}
