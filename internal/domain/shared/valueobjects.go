// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════
//
// One canonical identifier representation per entity: UUID rendered as a
// lowercase string at the schema boundary. No fallback query shapes.

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents a unique learner identifier (UUID format).
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// NodeID represents a unique content node identifier (UUID format).
type NodeID string

// IsValid checks if the node ID is a valid UUID.
func (n NodeID) IsValid() bool {
	return uuidRegex.MatchString(string(n))
}

// String returns the string representation.
func (n NodeID) String() string {
	return string(n)
}

// IsEmpty checks if the ID is empty.
func (n NodeID) IsEmpty() bool {
	return n == ""
}

// NewNodeID creates a new NodeID with validation.
func NewNodeID(id string) (NodeID, error) {
	nid := NodeID(strings.ToLower(strings.TrimSpace(id)))
	if !nid.IsValid() {
		return "", NewDomainError("shared", "NewNodeID", ErrInvalidID, "invalid node ID format")
	}
	return nid, nil
}

// SkillID represents a unique skill (category) identifier (UUID format).
type SkillID string

// IsValid checks if the skill ID is a valid UUID.
func (s SkillID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SkillID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s SkillID) IsEmpty() bool {
	return s == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Numeric Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points. Never negative.
type XP int

// IsValid checks that the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Gems represents the soft currency balance. Never negative.
type Gems int

// IsValid checks that the gem balance is non-negative.
func (g Gems) IsValid() bool {
	return g >= 0
}

// Int returns the underlying int value.
func (g Gems) Int() int {
	return int(g)
}

// ═══════════════════════════════════════════════════════════════════════════
// Time helpers
// ═══════════════════════════════════════════════════════════════════════════

// SameUTCDay reports whether two instants fall on the same calendar day in UTC.
// Streak semantics are calendar-day based, not rolling-24h based.
func SameUTCDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

// HoursBetween returns the wall-clock hours elapsed from a to b.
func HoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}
