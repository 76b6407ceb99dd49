package auth

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tendant/farmgate/pkg/domain"
)

// contactRegex accepts 10-15 digits with an optional leading +.
var contactRegex = regexp.MustCompile(`^\+?\d{10,15}$`)

const maxNameLength = 200

// ValidateContact validates a phone contact number.
func ValidateContact(contact string) error {
	if !contactRegex.MatchString(strings.TrimSpace(contact)) {
		return domain.ErrInvalidContact
	}
	return nil
}

// FieldErrors maps form field names to user-facing messages.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return domain.ErrValidation.Error()
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(domain.ErrValidation.Error())
	b.WriteString(": ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(fe[f])
	}
	return b.String()
}

// Is makes errors.Is(err, domain.ErrValidation) true for FieldErrors.
func (fe FieldErrors) Is(target error) bool {
	return target == domain.ErrValidation
}

// Add records a message for field, keeping the first one.
func (fe FieldErrors) Add(field, message string) {
	if _, ok := fe[field]; !ok {
		fe[field] = message
	}
}

// Err returns fe as an error, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// SignupForm is the registration form as submitted.
type SignupForm struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

// Normalize trims text fields and lowercases the email.
func (f *SignupForm) Normalize() {
	f.FullName = SanitizeName(f.FullName)
	f.Email = NormalizeEmail(f.Email)
	f.Contact = strings.TrimSpace(f.Contact)
}

// SignupValidator checks registration forms.
type SignupValidator struct {
	Policy          *PasswordPolicy
	StrictEmail     bool
	BlockDisposable bool
}

// Validate reports every invalid field at once.
func (v SignupValidator) Validate(f SignupForm) error {
	errs := FieldErrors{}

	if strings.TrimSpace(f.FullName) == "" {
		errs.Add("full_name", "Please enter your full name.")
	} else if err := ValidateStringLength("full name", f.FullName, 0, maxNameLength); err != nil {
		errs.Add("full_name", err.Error())
	}

	if err := ValidateEmail(f.Email, v.StrictEmail, v.BlockDisposable); err != nil {
		errs.Add("email", "Please enter a valid email.")
	}

	if err := ValidateContact(f.Contact); err != nil {
		errs.Add("contact", "Please enter a valid contact number.")
	}

	policy := v.Policy
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	if f.Password == "" {
		errs.Add("password", "Please enter a password.")
	} else if err := policy.ValidatePassword(f.Password); err != nil {
		errs.Add("password", policy.GetRequirements()+".")
	}

	if f.ConfirmPassword != f.Password {
		errs.Add("confirm_password", "Passwords do not match.")
	}

	if !f.AcceptTerms {
		errs.Add("terms", "You must agree to the Terms of Service and Privacy Policy.")
	}

	return errs.Err()
}
