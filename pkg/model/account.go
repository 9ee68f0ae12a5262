package model

// AccountID addresses a funds-holding account on the payment gateway.
// Property owners and renters are both identified by one; callers pass
// theirs in the X-Account-ID request header.
type AccountID string

func (a AccountID) String() string {
	return string(a)
}
