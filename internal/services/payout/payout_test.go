package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
)

func testDisbursement() Disbursement {
	return Disbursement{
		WithdrawalID:  uuid.New(),
		UserID:        uuid.New(),
		Amount:        150000,
		BankName:      "BCA",
		AccountName:   "Budi",
		AccountNumber: "1234567890",
	}
}

func TestClient_DisburseSignsRequest(t *testing.T) {
	d := testDisbursement()
	var got disbursementRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/disbursement/create", r.URL.Path)
		assert.Equal(t, "Bearer api-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":{"reference":"DS-0001","merchant_ref":"` + d.WithdrawalID.String() + `","status":"PROCESSING"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "api-key", "private", "M001")
	receipt, err := c.Disburse(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "DS-0001", receipt.Reference)

	assert.Equal(t, d.WithdrawalID.String(), got.MerchantRef)
	assert.Equal(t, d.Amount, got.Amount)
	assert.Equal(t, c.Sign("M001"+d.WithdrawalID.String()+"150000"), got.Signature)
	assert.Len(t, got.Signature, 64)
}

func TestClient_DisburseRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"invalid account number"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "p", "m").Disburse(context.Background(), testDisbursement())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
	assert.Contains(t, err.Error(), "invalid account number")
}

func TestClient_DisburseServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "p", "m").Disburse(context.Background(), testDisbursement())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestClient_DisburseMissingReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "p", "m").Disburse(context.Background(), testDisbursement())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestClient_DisburseUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "k", "p", "m").Disburse(context.Background(), testDisbursement())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestLocalIssuer_UniqueCodes(t *testing.T) {
	issuer := LocalIssuer{}
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		r, err := issuer.Disburse(context.Background(), testDisbursement())
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(r.Reference, "WD-"))
		require.Len(t, r.Reference, len("WD-")+12)
		_, dup := seen[r.Reference]
		require.False(t, dup, "duplicate reference %s", r.Reference)
		seen[r.Reference] = struct{}{}
	}
}

func TestGenerateCode_Alphabet(t *testing.T) {
	code, err := GenerateCode(64)
	require.NoError(t, err)
	for _, ch := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, ch), "unexpected %q", ch)
	}
}
