// Package join handles the membership application form and the thank-you
// summary that follows it.
package join

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Membership levels offered on the form, cheapest first.
const (
	LevelNonProfit = "np"
	LevelBronze    = "bronze"
	LevelSilver    = "silver"
	LevelGold      = "gold"
)

// Levels lists the form's membership levels in display order.
var Levels = []string{LevelNonProfit, LevelBronze, LevelSilver, LevelGold}

var levelLabels = map[string]string{
	LevelNonProfit: "NP Membership",
	LevelBronze:    "Bronze Membership",
	LevelSilver:    "Silver Membership",
	LevelGold:      "Gold Membership",
}

// LevelLabel is the human name of a level slug.
func LevelLabel(level string) string {
	if l, ok := levelLabels[level]; ok {
		return l
	}
	return level
}

// TimestampLayout matches what a browser's Date.toISOString produces.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	localPhone    = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
	intlPhone     = regexp.MustCompile(`^\+?[\d\s()\-]+$`)
	nonDigitChars = regexp.MustCompile(`\D`)
)

// Application is one submitted membership form.
type Application struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Title           string `json:"title"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Organization    string `json:"organization"`
	MembershipLevel string `json:"membershipLevel"`
	Description     string `json:"description"`
	Timestamp       string `json:"timestamp"`
}

var fieldNames = []string{
	"firstName", "lastName", "title", "email", "phone",
	"organization", "membershipLevel", "description", "timestamp",
}

func (a *Application) fields() []*string {
	return []*string{
		&a.FirstName, &a.LastName, &a.Title, &a.Email, &a.Phone,
		&a.Organization, &a.MembershipLevel, &a.Description, &a.Timestamp,
	}
}

// FromQuery decodes form or query values. Values are trimmed.
func FromQuery(v url.Values) Application {
	var a Application
	for i, f := range a.fields() {
		*f = strings.TrimSpace(v.Get(fieldNames[i]))
	}
	return a
}

// Query encodes the non-empty fields.
func (a Application) Query() url.Values {
	v := url.Values{}
	for i, f := range a.fields() {
		if *f != "" {
			v.Set(fieldNames[i], *f)
		}
	}
	return v
}

// Complete reports whether every required field is present.
func (a Application) Complete() bool {
	return a.FirstName != "" && a.LastName != "" && a.Email != "" &&
		a.Phone != "" && a.Organization != ""
}

// FullName joins first and last name.
func (a Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Validate checks the application against the form's rules as of now. The
// returned error is a validation.Errors keyed by field name.
func (a Application) Validate(now time.Time) error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.Title, validation.Length(0, 100)),
		validation.Field(&a.Email, validation.Required, is.EmailFormat,
			validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&a.Phone, validation.Required, validation.By(phoneRule)),
		validation.Field(&a.Organization, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.MembershipLevel, validation.In(LevelNonProfit, LevelBronze, LevelSilver, LevelGold)),
		validation.Field(&a.Description, validation.Length(0, 2000)),
		validation.Field(&a.Timestamp, validation.By(notAfter(now))),
	)
}

func phoneRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" || localPhone.MatchString(s) {
		return nil
	}
	if intlPhone.MatchString(s) {
		if n := len(nonDigitChars.ReplaceAllString(s, "")); n >= 7 && n <= 20 {
			return nil
		}
	}
	return errors.New("must be a phone number like 555-123-4567 or +58 424 123 4567")
}

func notAfter(now time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return errors.New("must be an ISO 8601 timestamp")
		}
		if t.After(now) {
			return errors.New("must not be in the future")
		}
		return nil
	}
}

// FormatTimestamp renders an ISO timestamp as "January 2, 2006 at 3:04 PM"
// in the timestamp's own offset. Unparseable input is returned unchanged.
func FormatTimestamp(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("January 2, 2006") + " at " + t.Format("3:04 PM")
}

// FieldErrors flattens a Validate result into field -> message. Any other
// error is reported under the empty key.
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			out[field] = e.Error()
		}
		return out
	}
	out[""] = err.Error()
	return out
}
