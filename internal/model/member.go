// internal/model/member.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Member is a campaign recipient.
type Member struct {
	ID             int     `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	NameBangla     string  `db:"name_bangla" json:"name_bangla,omitempty"`
	Email          string  `db:"email" json:"email,omitempty"`
	Mobile         string  `db:"mobile" json:"mobile,omitempty"`
	MembershipCode string  `db:"membership_code" json:"membership_code"`
	MembershipType string  `db:"membership_type" json:"membership_type,omitempty"`
	Batch          string  `db:"batch" json:"batch,omitempty"`
	Extra          Profile `db:"extra" json:"extra,omitempty"`
}

// Type returns the membership type, falling back to the code prefix
// ("GM" for "GM-0012").
func (m Member) Type() string {
	if m.MembershipType != "" {
		return m.MembershipType
	}
	if i := strings.Index(m.MembershipCode, "-"); i > 0 {
		return m.MembershipCode[:i]
	}
	return ""
}

// Profile holds free-form profile fields usable as personalization variables.
type Profile map[string]string

func (p Profile) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Profile) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("cannot scan %T into Profile", src)
}
