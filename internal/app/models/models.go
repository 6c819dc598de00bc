package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role is the role of a user account and of a messaging participant.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSecretariat Role = "secretariat"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
	RoleGuardian    Role = "guardian"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleSecretariat, RoleTeacher, RoleStudent, RoleGuardian}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether r may act on behalf of the school office.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSecretariat
}

// PersonTable is the table holding the person records of r, empty for staff roles.
func (r Role) PersonTable() string {
	switch r {
	case RoleTeacher:
		return "teachers"
	case RoleStudent:
		return "students"
	case RoleGuardian:
		return "guardians"
	}
	return ""
}

// Participant identifies one side of a message. Staff participate with their
// account id, everyone else with the id of their person record.
type Participant struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Key is the stable "role:id" form used for push routing.
func (p Participant) Key() string {
	return string(p.Role) + ":" + strconv.FormatInt(p.ID, 10)
}

func (p Participant) String() string { return p.Key() }

const dateLayout = "2006-01-02"

// Date is a calendar day. It reads and writes "YYYY-MM-DD" in JSON and
// accepts full RFC 3339 timestamps on input.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD" or RFC 3339.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DatePtr converts a nullable scanned column.
func DatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}

// TimeOrNil is the column value for a nullable date.
func TimeOrNil(d *Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
