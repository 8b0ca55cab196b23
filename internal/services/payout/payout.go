// Package payout is the boundary to the external payment rail that moves
// approved withdrawals to the user's bank account.
package payout

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// Disbursement is what the rail needs to pay out one withdrawal. The
// withdrawal id doubles as the idempotency key on the rail side.
type Disbursement struct {
	WithdrawalID  uuid.UUID
	UserID        uuid.UUID
	Amount        int64
	BankName      string
	AccountName   string
	AccountNumber string
}

// Receipt identifies the transaction on the rail.
type Receipt struct {
	Reference string
}

type Rail interface {
	Disburse(ctx context.Context, d Disbursement) (Receipt, error)
}

// LocalIssuer mints reference codes without contacting a rail. It stands in
// for the rail in development; the codes do not correspond to real payouts.
type LocalIssuer struct {
	Prefix string
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (l LocalIssuer) Disburse(_ context.Context, d Disbursement) (Receipt, error) {
	code, err := GenerateCode(12)
	if err != nil {
		return Receipt{}, err
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = "WD"
	}
	return Receipt{Reference: fmt.Sprintf("%s-%s", prefix, code)}, nil
}

// GenerateCode returns n characters drawn uniformly from codeAlphabet.
func GenerateCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		// len(codeAlphabet) divides 256, so the modulo is unbiased.
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
