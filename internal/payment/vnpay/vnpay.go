// Package vnpay signs payment requests for the VNPay gateway and verifies its callbacks.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	ResponseCodeSuccess = "00"

	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
	timestampLayout     = "20060102150405"
)

// Gateway timestamps are always Vietnam local time.
var ict = time.FixedZone("ICT", 7*3600)

type Config struct {
	TmnCode       string
	HashSecret    string
	PaymentURL    string
	ReturnURL     string
	Version       string
	Locale        string
	CurrCode      string
	OrderType     string
	ExpireMinutes int
}

type PaymentRequest struct {
	TxnRef    string
	Amount    int64 // VND
	OrderInfo string
	ClientIP  string
	BankCode  string
	CreatedAt time.Time
}

type Gateway struct {
	cfg Config
}

func New(cfg Config) *Gateway {
	if cfg.Version == "" {
		cfg.Version = "2.1.0"
	}
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	if cfg.CurrCode == "" {
		cfg.CurrCode = "VND"
	}
	if cfg.OrderType == "" {
		cfg.OrderType = "other"
	}
	if cfg.ExpireMinutes <= 0 {
		cfg.ExpireMinutes = 15
	}
	return &Gateway{cfg: cfg}
}

// ExpiresAt is when a payment request created at t stops being payable.
func (g *Gateway) ExpiresAt(t time.Time) time.Time {
	return t.Add(time.Duration(g.cfg.ExpireMinutes) * time.Minute)
}

// BuildPaymentURL returns the signed redirect URL for req.
func (g *Gateway) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.TxnRef == "" {
		return "", errors.New("vnpay: transaction reference is required")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("vnpay: amount must be positive, got %d", req.Amount)
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	clientIP := req.ClientIP
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"vnp_Version":    g.cfg.Version,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_CurrCode":   g.cfg.CurrCode,
		"vnp_Locale":     g.cfg.Locale,
		"vnp_TxnRef":     req.TxnRef,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  g.cfg.OrderType,
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": created.In(ict).Format(timestampLayout),
		"vnp_ExpireDate": g.ExpiresAt(created).In(ict).Format(timestampLayout),
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}

	canonical := CanonicalQuery(params)
	return g.cfg.PaymentURL + "?" + canonical + "&" + paramSecureHash + "=" + g.sign(canonical), nil
}

// Sign returns the hex HMAC-SHA512 of the canonical form of params.
func (g *Gateway) Sign(params map[string]string) string {
	return g.sign(CanonicalQuery(params))
}

func (g *Gateway) sign(canonical string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature of a callback. It only answers whether the
// parameters are authentic; callers decide what a failure means.
func (g *Gateway) Verify(params map[string]string) bool {
	got := strings.ToLower(params[paramSecureHash])
	if got == "" {
		return false
	}
	want := g.Sign(params)
	return hmac.Equal([]byte(got), []byte(want))
}

// CanonicalQuery sorts the vnp_ parameters by key, drops the hash fields and empty values,
// and joins key=value pairs with '&'. Values are encoded like encodeURIComponent with
// spaces as '+'; both signing and verification must reproduce this byte for byte.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if !strings.HasPrefix(k, "vnp_") || k == paramSecureHash || k == paramSecureHashType || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encode(k))
		b.WriteByte('=')
		b.WriteString(encode(params[k]))
	}
	return b.String()
}

var componentUnescaper = strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

func encode(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// Callback is the business content of a return or IPN request.
type Callback struct {
	TxnRef            string
	Amount            int64 // VND, already divided by 100
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           string
}

// Succeeded reports whether the gateway says the money moved.
func (c Callback) Succeeded() bool {
	if c.ResponseCode != ResponseCodeSuccess {
		return false
	}
	return c.TransactionStatus == "" || c.TransactionStatus == ResponseCodeSuccess
}

var ErrMissingTxnRef = errors.New("vnpay: missing vnp_TxnRef")

// ParseCallback extracts the callback fields. Amount parse failures leave Amount at -1.
func ParseCallback(params map[string]string) (Callback, error) {
	cb := Callback{
		TxnRef:            params["vnp_TxnRef"],
		ResponseCode:      params["vnp_ResponseCode"],
		TransactionStatus: params["vnp_TransactionStatus"],
		TransactionNo:     params["vnp_TransactionNo"],
		BankCode:          params["vnp_BankCode"],
		PayDate:           params["vnp_PayDate"],
		Amount:            -1,
	}
	if raw, ok := params["vnp_Amount"]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cb.Amount = v / 100
		}
	}
	if cb.TxnRef == "" {
		return cb, ErrMissingTxnRef
	}
	return cb, nil
}

// ParamsFromQuery flattens a query string to the first value of each key.
func ParamsFromQuery(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
