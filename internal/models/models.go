package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MembershipLevel is the chamber tier of a member.
type MembershipLevel int

const (
	LevelBasic  MembershipLevel = 1
	LevelSilver MembershipLevel = 2
	LevelGold   MembershipLevel = 3
)

// Normalize folds anything that is not Silver or Gold into Basic.
func (l MembershipLevel) Normalize() MembershipLevel {
	switch l {
	case LevelSilver, LevelGold:
		return l
	default:
		return LevelBasic
	}
}

// UnmarshalJSON accepts any JSON scalar. Only the numbers 2 and 3 select a
// paid tier; strings, booleans, null and other numbers decode to Basic rather
// than failing the whole document.
func (l *MembershipLevel) UnmarshalJSON(data []byte) error {
	*l = LevelBasic

	data = bytes.TrimSpace(data)
	if len(data) == 0 || !(data[0] == '-' || (data[0] >= '0' && data[0] <= '9')) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) {
		return nil
	}
	*l = MembershipLevel(int(f)).Normalize()
	return nil
}

// Member represents a single directory entry from data/members.json
type Member struct {
	Name            string          `json:"name"`
	Address         string          `json:"address"`
	Phone           string          `json:"phone"`
	Website         string          `json:"website"`
	MembershipLevel MembershipLevel `json:"membershipLevel"`
	Category        string          `json:"category,omitempty"`
	Description     string          `json:"description,omitempty"`
	Image           string          `json:"image"`
}

// Level returns the member's tier with unknown values folded into Basic.
func (m Member) Level() MembershipLevel {
	return m.MembershipLevel.Normalize()
}

// Validate rejects records without a name, including JSON nulls.
func (m Member) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.By(notBlank)),
	)
}

func notBlank(value interface{}) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
}

// Place is a point of interest on the discover page
type Place struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
