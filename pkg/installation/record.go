// Package installation defines the installation record shared by the loader
// and the license calculator, together with its duplicate key and computer
// type classification.
package installation

import "strings"

// Normalized computer type labels.
const (
	TypeLaptop  = "LAPTOP"
	TypeDesktop = "DESKTOP"
)

// Category classifies a record's computer type for license counting.
type Category int

const (
	// CategoryOther covers every label that is neither a laptop nor a desktop,
	// including an absent label.
	CategoryOther Category = iota
	// CategoryLaptop is a laptop installation.
	CategoryLaptop
	// CategoryDesktop is a desktop installation.
	CategoryDesktop
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryLaptop:
		return "laptop"
	case CategoryDesktop:
		return "desktop"
	case CategoryOther:
		return "other"
	}

	return "other"
}

// Record is one row of installation data.
type Record struct {
	ComputerID    int    `json:"computer_id"    yaml:"computer_id"`
	UserID        int    `json:"user_id"        yaml:"user_id"`
	ApplicationID int    `json:"application_id" yaml:"application_id"`
	ComputerType  string `json:"computer_type"  yaml:"computer_type"`
	Comment       string `json:"comment"        yaml:"comment"`
}

// Key identifies a record for duplicate suppression. Comment is not part of it.
type Key struct {
	ComputerID    int
	UserID        int
	ApplicationID int
	ComputerType  string
}

// NormalizeType upper-cases a computer type label. The mapping is the Unicode
// default case mapping and does not depend on the host locale.
func NormalizeType(computerType string) string {
	return strings.ToUpper(computerType)
}

// Key returns the duplicate key of the record.
func (r Record) Key() Key {
	return Key{
		ComputerID:    r.ComputerID,
		UserID:        r.UserID,
		ApplicationID: r.ApplicationID,
		ComputerType:  NormalizeType(r.ComputerType),
	}
}

// Category classifies the record's computer type, ignoring case.
func (r Record) Category() Category {
	switch NormalizeType(r.ComputerType) {
	case TypeLaptop:
		return CategoryLaptop
	case TypeDesktop:
		return CategoryDesktop
	default:
		return CategoryOther
	}
}
