package educonnect

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeCredentials         = "CREDENTIALS_INVALID"
	TextCodeAccountExists       = "ACCOUNT_EXISTS"
	TextCodeIdentifierTaken     = "IDENTIFIER_TAKEN"
	TextCodeRoleMismatch        = "ROLE_MISMATCH"
	TextCodePartialProvisioning = "PARTIAL_PROVISIONING"
	TextCodeNotAuthenticated    = "NOT_AUTHENTICATED"
	TextCodeRoleMissing         = "ROLE_MISSING"
	TextCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	TextCodeIdentityUnavailable = "IDENTITY_UNAVAILABLE"
	TextCodeValidation          = "VALIDATION_FAILED"
)

// ErrCredentials is returned for bad email/password pairs and rejected sign
// up data. Nothing was changed and the caller may retry.
var ErrCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountExists is returned when sign up hits an existing identity. The
// caller should sign in instead and finish profile setup from there.
var ErrAccountExists = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(errors.CodeConflict)

// ErrIdentifierTaken is what IdentityClient implementations return when the
// identity service rejects a duplicate identifier.
var ErrIdentifierTaken = errors.New("identifier already registered", errors.CategoryConflict).
	WithTextCode(TextCodeIdentifierTaken).
	WithCode(errors.CodeConflict)

// ErrRoleMismatch is returned when the account role differs from the entry
// point used to sign in. The session stays live.
var ErrRoleMismatch = errors.New("wrong account type for this sign in page", errors.CategoryAuthz).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(errors.CodeForbidden)

// ErrPartialProvisioning is returned when the identity was created but the
// profile row was not. The identity is kept.
var ErrPartialProvisioning = errors.New("account created but profile setup failed", errors.CategoryOperation).
	WithTextCode(TextCodePartialProvisioning).
	WithCode(errors.CodeInternal)

var ErrNotAuthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

var ErrNoRole = errors.New("account has no role", errors.CategoryAuthz).
	WithTextCode(TextCodeRoleMissing).
	WithCode(errors.CodeForbidden)

var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrIdentityUnavailable wraps transport failures talking to the identity
// service.
var ErrIdentityUnavailable = errors.New("identity service unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeIdentityUnavailable).
	WithCode(errors.CodeInternal)

var ErrValidation = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

func IsCredentialError(err error) bool     { return hasTextCode(err, TextCodeCredentials) }
func IsAccountExists(err error) bool       { return hasTextCode(err, TextCodeAccountExists) }
func IsIdentifierTaken(err error) bool     { return hasTextCode(err, TextCodeIdentifierTaken) }
func IsRoleMismatch(err error) bool        { return hasTextCode(err, TextCodeRoleMismatch) }
func IsPartialProvisioning(err error) bool { return hasTextCode(err, TextCodePartialProvisioning) }
func IsNotAuthenticated(err error) bool    { return hasTextCode(err, TextCodeNotAuthenticated) }
func IsProfileNotFound(err error) bool     { return hasTextCode(err, TextCodeProfileNotFound) }
func IsIdentityUnavailable(err error) bool { return hasTextCode(err, TextCodeIdentityUnavailable) }
func IsValidationError(err error) bool     { return hasTextCode(err, TextCodeValidation) }

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	for err != nil {
		if !errors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == code {
			return true
		}
		err = stderrors.Unwrap(richErr)
	}
	return false
}

// UserMessage returns the text shown next to a form for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return "Please correct the highlighted fields."
	case IsAccountExists(err):
		return "An account with this email already exists. Sign in to continue setting up your profile."
	case IsCredentialError(err):
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Metadata != nil {
			if reason, ok := richErr.Metadata["reason"].(string); ok && reason != "" {
				return reason
			}
		}
		return "Invalid email or password."
	case IsRoleMismatch(err):
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Metadata != nil {
			if actual, ok := richErr.Metadata["actual"].(Role); ok && actual.IsValid() {
				return "Invalid account type. Please sign in as a " + string(actual) + "."
			}
		}
		return "Invalid account type for this sign in page."
	case IsPartialProvisioning(err):
		return "Your account was created but we could not set up your profile. Sign in to finish setup."
	case IsIdentityUnavailable(err):
		return "The sign in service is unavailable, please try again."
	case IsNotAuthenticated(err):
		return "Please sign in."
	default:
		return "Something went wrong, please try again."
	}
}

// FieldErrors extracts per field messages from a validation error.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Metadata != nil {
		if fields, ok := richErr.Metadata["fields"].(map[string]string); ok {
			return fields
		}
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, e := range verrs {
			out[field] = e.Error()
		}
	}
	return out
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, e := range verrs {
			fields[field] = e.Error()
		}
	} else {
		fields["form"] = err.Error()
	}

	return withMeta(ErrValidation, map[string]any{
		"fields": fields,
	})
}

// withMeta returns a copy of base carrying meta, leaving the package level
// value untouched.
func withMeta(base *errors.Error, meta map[string]any) *errors.Error {
	return errors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithCode(base.Code).
		WithMetadata(meta)
}

// wrapAs returns a copy of base with cause attached as its source.
func wrapAs(cause error, base *errors.Error, meta map[string]any) *errors.Error {
	out := withMeta(base, meta)
	out.Source = cause
	return out
}
