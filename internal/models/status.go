package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Every status dimension is a closed set. Parsing is case-insensitive so rows
// written by older clients ("approved", "APPROVED") read back canonical, and
// anything outside the set is an error instead of a silent new state.

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

func ParseRole(s string) (Role, error) { return parseClosed("role", s, roles) }

func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

func (r *Role) Scan(v any) error { return scanClosed(v, r, ParseRole) }

func (r Role) Value() (driver.Value, error) { return valueClosed(r, ParseRole) }

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "Pending"
	ApplicationApproved  ApplicationStatus = "Approved"
	ApplicationSuspended ApplicationStatus = "Suspended"
	ApplicationRejected  ApplicationStatus = "Rejected"
)

var applicationStatuses = []ApplicationStatus{
	ApplicationPending, ApplicationApproved, ApplicationSuspended, ApplicationRejected,
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	return parseClosed("application status", s, applicationStatuses)
}

func (s *ApplicationStatus) Scan(v any) error {
	return scanClosed(v, s, ParseApplicationStatus)
}

func (s ApplicationStatus) Value() (driver.Value, error) {
	return valueClosed(s, ParseApplicationStatus)
}

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "Unverified"
	VerificationPending    VerificationStatus = "Pending"
	VerificationVerified   VerificationStatus = "Verified"
	VerificationRejected   VerificationStatus = "Rejected"
)

var verificationStatuses = []VerificationStatus{
	VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected,
}

func ParseVerificationStatus(s string) (VerificationStatus, error) {
	return parseClosed("verification status", s, verificationStatuses)
}

func (s *VerificationStatus) Scan(v any) error {
	return scanClosed(v, s, ParseVerificationStatus)
}

func (s VerificationStatus) Value() (driver.Value, error) {
	return valueClosed(s, ParseVerificationStatus)
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "Pending"
	WithdrawalApproved WithdrawalStatus = "Approved"
	WithdrawalRejected WithdrawalStatus = "Rejected"
)

var withdrawalStatuses = []WithdrawalStatus{WithdrawalPending, WithdrawalApproved, WithdrawalRejected}

func ParseWithdrawalStatus(s string) (WithdrawalStatus, error) {
	return parseClosed("withdrawal status", s, withdrawalStatuses)
}

func (s *WithdrawalStatus) Scan(v any) error {
	return scanClosed(v, s, ParseWithdrawalStatus)
}

func (s WithdrawalStatus) Value() (driver.Value, error) {
	return valueClosed(s, ParseWithdrawalStatus)
}

// OverallStatus is derived from the verification levels on every read and is
// never stored.
type OverallStatus string

const (
	OverallApproved OverallStatus = "approved"
	OverallPending  OverallStatus = "pending"
	OverallRejected OverallStatus = "rejected"
)

var overallStatuses = []OverallStatus{OverallApproved, OverallPending, OverallRejected}

func ParseOverallStatus(s string) (OverallStatus, error) {
	return parseClosed("overall status", s, overallStatuses)
}

func parseClosed[T ~string](what, raw string, set []T) (T, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range set {
		if strings.EqualFold(raw, string(v)) {
			return v, nil
		}
	}
	// SUPER_ADMIN is also seen as "super admin" / "super-admin".
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(raw)
	for _, v := range set {
		if strings.EqualFold(norm, string(v)) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", what, raw)
}

func scanClosed[T ~string](v any, dst *T, parse func(string) (T, error)) error {
	var raw string
	switch t := v.(type) {
	case nil:
		*dst = ""
		return nil
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return fmt.Errorf("cannot scan %T into %T", v, dst)
	}
	if raw == "" {
		*dst = ""
		return nil
	}
	parsed, err := parse(raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func valueClosed[T ~string](v T, parse func(string) (T, error)) (driver.Value, error) {
	if v == "" {
		return "", nil
	}
	parsed, err := parse(string(v))
	if err != nil {
		return nil, err
	}
	return string(parsed), nil
}
