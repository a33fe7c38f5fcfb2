package contact

import (
	"regexp"
	"strings"

	"agenda/errs"

	"github.com/google/uuid"
)

const (
	MinAreaCode = 11
	MaxAreaCode = 99
)

var (
	ErrInvalidName     = errs.Errorf(errs.EINVALID, "invalid name")
	ErrInvalidPhone    = errs.Errorf(errs.EINVALID, "invalid phone")
	ErrInvalidEmail    = errs.Errorf(errs.EINVALID, "invalid email")
	ErrInvalidAreaCode = errs.Errorf(errs.EBUSINESS, "invalid area code")

	ErrContactNotFound          = errs.Errorf(errs.ENOTFOUND, "contact not found")
	ErrContactAlreadyRegistered = errs.Errorf(errs.ECONFLICT, "contact already registered")
	ErrDuplicateContact         = errs.Errorf(errs.ECONFLICT, "a contact with the same email or phone/area code is already registered")
	ErrDuplicateOtherContact    = errs.Errorf(errs.ECONFLICT, "another contact with the same email or phone/area code is already registered")
	ErrConcurrentUpdate         = errs.Errorf(errs.ECONCURRENCY, "the contact was modified by someone else, try again")
)

var phoneDigits = regexp.MustCompile(`^[0-9]+$`)

// Contact is a person reachable by email and by phone within an area code (DDD).
// ID is assigned by New and never changes afterwards.
type Contact struct {
	ID       uuid.UUID
	Name     string
	Phone    string
	Email    string
	AreaCode int

	// Version is bumped by the store on every successful update.
	Version int
}

// New builds a contact with a freshly generated ID.
func New(name, phone, email string, areaCode int) Contact {
	return Contact{
		ID:       uuid.New(),
		Name:     name,
		Phone:    phone,
		Email:    NormalizeEmail(email),
		AreaCode: areaCode,
	}
}

// Update replaces the mutable fields of c in place.
func (c *Contact) Update(name, phone, email string, areaCode int) {
	c.Name = name
	c.Phone = phone
	c.Email = NormalizeEmail(email)
	c.AreaCode = areaCode
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}

	if !phoneDigits.MatchString(c.Phone) {
		return ErrInvalidPhone
	}

	if strings.TrimSpace(c.Email) == "" {
		return ErrInvalidEmail
	}

	if !ValidAreaCode(c.AreaCode) {
		return ErrInvalidAreaCode
	}

	return nil
}

// NormalizeEmail returns the form emails are stored and compared in. Two
// addresses that differ only by case or surrounding spaces are the same email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidAreaCode reports whether ddd is a two digit area code between 11 and 99.
func ValidAreaCode(ddd int) bool {
	return ddd >= MinAreaCode && ddd <= MaxAreaCode
}
