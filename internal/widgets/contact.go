package widgets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

const (
	MaxSubjectLen = 200
	MaxMessageLen = 5000
)

// ContactCategories are the topics offered by the contact form.
var ContactCategories = []string{"general", "partnership", "bug", "content", "other"}

// ValidationError lists form fields that failed validation, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range []string{"category", "subject", "message", "email"} {
		if msg, ok := e.Fields[f]; ok {
			parts = append(parts, f+": "+msg)
		}
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// ContactSender submits the contact form.
type ContactSender interface {
	SubmitContact(ctx context.Context, req webapi.ContactRequest) error
}

// ContactForm validates and submits contact messages.
type ContactForm struct {
	controller
	api ContactSender
}

func NewContactForm(api ContactSender) *ContactForm {
	return &ContactForm{api: api}
}

// Validate trims the form in place and checks every field.
func Validate(req *webapi.ContactRequest) error {
	req.Category = strings.TrimSpace(req.Category)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	switch {
	case req.Category == "":
		fields["category"] = "required"
	case !validCategory(req.Category):
		fields["category"] = "unknown category"
	}
	switch {
	case req.Subject == "":
		fields["subject"] = "required"
	case utf8.RuneCountInString(req.Subject) > MaxSubjectLen:
		fields["subject"] = fmt.Sprintf("at most %d characters", MaxSubjectLen)
	}
	switch {
	case req.Message == "":
		fields["message"] = "required"
	case utf8.RuneCountInString(req.Message) > MaxMessageLen:
		fields["message"] = fmt.Sprintf("at most %d characters", MaxMessageLen)
	}
	if req.Email == "" {
		fields["email"] = "required"
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		fields["email"] = "not a valid address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validCategory(c string) bool {
	for _, v := range ContactCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Submit validates req and sends it. An invalid form is not sent.
func (f *ContactForm) Submit(ctx context.Context, req webapi.ContactRequest) error {
	if err := f.begin(); err != nil {
		return err
	}
	if err := Validate(&req); err != nil {
		f.finishWithToast(err, false, "Please fix the highlighted fields.")
		return err
	}
	err := f.api.SubmitContact(ctx, req)
	var toast string
	switch {
	case err == nil:
		toast = "Thanks! Your message has been sent."
	case !errors.Is(err, webapi.ErrUnauthorized):
		toast = "Sending failed. Please try again."
	}
	f.finishWithToast(err, false, toast)
	return err
}

// Render writes the form status.
func (f *ContactForm) Render(w io.Writer) error {
	s := f.State()
	var b strings.Builder
	switch s.Status {
	case StatusLoading:
		b.WriteString("Sending...\n")
	case StatusRedirect:
		b.WriteString(redirectLine(s) + "\n")
	case StatusError:
		var verr *ValidationError
		if errors.As(s.Err, &verr) {
			for _, field := range []string{"category", "subject", "message", "email"} {
				if msg, ok := verr.Fields[field]; ok {
					fmt.Fprintf(&b, "  %s: %s\n", field, msg)
				}
			}
		} else {
			fmt.Fprintf(&b, "  %v\n", s.Err)
		}
	}
	if s.Toast != "" {
		b.WriteString(s.Toast + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
