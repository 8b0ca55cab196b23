package payout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
)

// Client talks to the payment rail's disbursement API. Requests carry a bearer
// API key and an HMAC-SHA256 signature over merchant code, merchant ref and
// amount.
type Client struct {
	HTTP         *http.Client
	BaseURL      string
	APIKey       string
	PrivateKey   string
	MerchantCode string
}

func NewClient(baseURL, apiKey, privateKey, merchantCode string) *Client {
	return &Client{
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		PrivateKey:   privateKey,
		MerchantCode: merchantCode,
	}
}

type disbursementRequest struct {
	MerchantRef   string `json:"merchant_ref"`
	Amount        int64  `json:"amount"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Signature     string `json:"signature"`
}

type disbursementResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		MerchantRef string `json:"merchant_ref"`
		Status      string `json:"status"`
	} `json:"data"`
}

func (c *Client) Disburse(ctx context.Context, d Disbursement) (Receipt, error) {
	merchantRef := d.WithdrawalID.String()
	reqBody := disbursementRequest{
		MerchantRef:   merchantRef,
		Amount:        d.Amount,
		BankCode:      d.BankName,
		AccountName:   d.AccountName,
		AccountNumber: d.AccountNumber,
		Signature:     c.Sign(fmt.Sprintf("%s%s%d", c.MerchantCode, merchantRef, d.Amount)),
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/disbursement/create", bytes.NewReader(jsonBody))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Receipt{}, apperr.Wrap(apperr.KindTimeout, "payment rail timed out", err)
		}
		return Receipt{}, apperr.Wrap(apperr.KindUnavailable, "payment rail unreachable", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, apperr.Wrap(apperr.KindUnavailable, "payment rail response unreadable", err)
	}

	if resp.StatusCode >= 500 {
		return Receipt{}, apperr.New(apperr.KindUnavailable, fmt.Sprintf("payment rail returned %d", resp.StatusCode))
	}

	var apiResp disbursementResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return Receipt{}, apperr.Wrap(apperr.KindUnavailable, "payment rail response malformed", err)
	}
	if !apiResp.Success {
		return Receipt{}, apperr.PreconditionFailed("payment rail rejected payout: %s", apiResp.Message)
	}
	if apiResp.Data.Reference == "" {
		return Receipt{}, apperr.New(apperr.KindUnavailable, "payment rail returned no reference")
	}
	return Receipt{Reference: apiResp.Data.Reference}, nil
}

// Sign returns the hex HMAC-SHA256 of data under the private key.
func (c *Client) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.PrivateKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
