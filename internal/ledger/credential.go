package ledger

// Credential verifies the shared code used by cashout and voucher redemption.
type Credential interface {
	Verify(code string) bool
}

// StaticCode accepts exactly one code.
type StaticCode string

func (c StaticCode) Verify(code string) bool {
	return c != "" && string(c) == code
}
