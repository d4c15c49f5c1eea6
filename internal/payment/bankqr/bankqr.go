// Package bankqr builds VietQR bank-transfer images. The transfer is matched by a
// human-readable reference, there is no signature and no automatic confirmation.
package bankqr

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const imageBaseURL = "https://img.vietqr.io/image"

type Config struct {
	BankID      string
	AccountNo   string
	AccountName string
	Template    string
}

type Generator struct {
	cfg Config
}

func New(cfg Config) *Generator {
	if cfg.Template == "" {
		cfg.Template = "compact2"
	}
	return &Generator{cfg: cfg}
}

// Reference is the transfer description the shop matches against incoming payments.
func Reference(orderID string) string {
	return "DEPOSIT " + orderID
}

// ImageURL returns the QR image URL for a transfer of amount VND referencing orderID.
func (g *Generator) ImageURL(orderID string, amount int64) (string, error) {
	if g.cfg.BankID == "" || g.cfg.AccountNo == "" {
		return "", errors.New("bankqr: receiver bank account is not configured")
	}
	if amount <= 0 {
		return "", fmt.Errorf("bankqr: amount must be positive, got %d", amount)
	}
	q := url.Values{}
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("addInfo", Reference(orderID))
	if g.cfg.AccountName != "" {
		q.Set("accountName", g.cfg.AccountName)
	}
	path := fmt.Sprintf("%s/%s-%s-%s.png", imageBaseURL, url.PathEscape(g.cfg.BankID), url.PathEscape(g.cfg.AccountNo), g.cfg.Template)
	return path + "?" + q.Encode(), nil
}
