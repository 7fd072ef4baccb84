package common

import (
	"fmt"
	"strings"
)

// ExceptionPolicy defines how a sync run handles an item that cannot be transformed
type ExceptionPolicy int

const (
	// PolicyRaise aborts the run on the first error. Nothing is loaded.
	PolicyRaise ExceptionPolicy = iota
	// PolicyIgnore skips the item and reports the error at the end of the run
	PolicyIgnore
)

func (p ExceptionPolicy) String() string {
	switch p {
	case PolicyRaise:
		return "RAISE"
	case PolicyIgnore:
		return "IGNORE"
	}
	return fmt.Sprintf("ExceptionPolicy(%d)", int(p))
}

// ExceptionPolicyString retrieves a policy from its name (case insensitive)
func ExceptionPolicyString(s string) (ExceptionPolicy, error) {
	switch strings.ToUpper(s) {
	case "RAISE":
		return PolicyRaise, nil
	case "IGNORE":
		return PolicyIgnore, nil
	}
	return 0, ErrBadParameter{Msg: fmt.Sprintf("%q is not a valid exception policy (RAISE|IGNORE)", s)}
}
