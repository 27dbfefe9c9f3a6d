package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Zone is a workflow stage on a department board. The zero value means the task has
// not been placed on a board yet.
type Zone string

// Board zones.
const (
	ZoneShelf   Zone = "SHELF"   // queued, waiting
	ZoneStorage Zone = "STORAGE" // blocked
	ZoneDock    Zone = "DOCK"    // ready
	ZoneActive  Zone = "ACTIVE"  // in progress; at most one per employee
)

// Zones lists every zone in board order.
var Zones = []Zone{ZoneShelf, ZoneStorage, ZoneDock, ZoneActive}

// Valid reports whether z is one of the four board zones.
func (z Zone) Valid() bool {
	switch z {
	case ZoneShelf, ZoneStorage, ZoneDock, ZoneActive:
		return true
	}
	return false
}

// IsSet reports whether a zone has been assigned.
func (z Zone) IsSet() bool { return z != "" }

func (z Zone) String() string { return string(z) }

// ParseZone accepts a zone label in any case.
func ParseZone(s string) (Zone, error) {
	z := Zone(strings.ToUpper(strings.TrimSpace(s)))
	if !z.Valid() {
		return "", fmt.Errorf("invalid zone %q", s)
	}
	return z, nil
}

func (z *Zone) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*z = ""
		return nil
	}
	v, err := ParseZone(s)
	if err != nil {
		return err
	}
	*z = v
	return nil
}

// Department is an organizational unit shared by tasks and employees. The zero value
// means "no department" (an untriaged task or an unaffiliated employee).
type Department string

// Departments.
const (
	DeptAdmin     Department = "ADMIN"
	DeptLab       Department = "LAB"
	DeptStudio    Department = "STUDIO"
	DeptWorkshop  Department = "WORKSHOP"
	DeptLogistics Department = "LOGISTICS"
)

// Departments lists the fixed department set.
var Departments = []Department{DeptAdmin, DeptLab, DeptStudio, DeptWorkshop, DeptLogistics}

// Valid reports whether d is one of the fixed departments.
func (d Department) Valid() bool {
	switch d {
	case DeptAdmin, DeptLab, DeptStudio, DeptWorkshop, DeptLogistics:
		return true
	}
	return false
}

// IsSet reports whether a department has been assigned.
func (d Department) IsSet() bool { return d != "" }

func (d Department) String() string { return string(d) }

// ParseDepartment accepts a department name in any case.
func ParseDepartment(s string) (Department, error) {
	d := Department(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid department %q", s)
	}
	return d, nil
}

func (d *Department) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = ""
		return nil
	}
	v, err := ParseDepartment(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Priority orders tasks on a board; higher sorts first.
type Priority int

// Priorities.
const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

var priorityNames = map[Priority]string{
	PriorityLow:    "LOW",
	PriorityMedium: "MEDIUM",
	PriorityHigh:   "HIGH",
	PriorityUrgent: "URGENT",
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// ParsePriority accepts a priority name in any case.
func ParsePriority(s string) (Priority, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == u {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid priority %q", s)
}

// MarshalJSON writes an unset priority as "" so it decodes back to zero;
// the store fills in MEDIUM on create.
func (p Priority) MarshalJSON() ([]byte, error) {
	if p == 0 {
		return json.Marshal("")
	}
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*p = 0
		return nil
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Task statuses. Status is informational; the engine only drives zones.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusCancelled  = "CANCELLED"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultSSEChannelBuffer    = 256
)
