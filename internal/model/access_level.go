package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	apperrors "authcore/internal/errors"
)

// AccessLevel is the closed, ordered privilege classification a Role carries.
// The zero value is not a valid level.
type AccessLevel uint8

const (
	AccessClient    AccessLevel = 1
	AccessModerator AccessLevel = 2
	AccessSuperuser AccessLevel = 3
)

var accessLevelNames = map[AccessLevel]string{
	AccessClient:    "client",
	AccessModerator: "moderator",
	AccessSuperuser: "superuser",
}

// AccessLevels lists every level in increasing privilege.
func AccessLevels() []AccessLevel {
	return []AccessLevel{AccessClient, AccessModerator, AccessSuperuser}
}

// ParseAccessLevel resolves a level by name.
func ParseAccessLevel(name string) (AccessLevel, error) {
	for level, n := range accessLevelNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, apperrors.ErrInvalidAccessLevel)
}

// Valid reports whether l is one of the three defined levels.
func (l AccessLevel) Valid() bool {
	_, ok := accessLevelNames[l]
	return ok
}

func (l AccessLevel) String() string {
	if name, ok := accessLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("AccessLevel(%d)", uint8(l))
}

// Compare returns -1, 0 or +1 as l is less, equal or more privileged than other.
func (l AccessLevel) Compare(other AccessLevel) int {
	switch {
	case l < other:
		return -1
	case l > other:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l grants at least the privilege of min.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.Compare(min) >= 0
}

// Value stores the level by name.
func (l AccessLevel) Value() (driver.Value, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("value %d: %w", uint8(l), apperrors.ErrInvalidAccessLevel)
	}
	return l.String(), nil
}

// Scan reads a level stored by name.
func (l *AccessLevel) Scan(src any) error {
	var name string
	switch v := src.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		return fmt.Errorf("scan access level from %T: %w", src, apperrors.ErrInvalidAccessLevel)
	}
	parsed, err := ParseAccessLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l AccessLevel) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("marshal %d: %w", uint8(l), apperrors.ErrInvalidAccessLevel)
	}
	return json.Marshal(l.String())
}

func (l *AccessLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("access level must be a string: %w", apperrors.ErrInvalidAccessLevel)
	}
	parsed, err := ParseAccessLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
