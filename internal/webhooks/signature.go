package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Signature header format: "t=<unix seconds>,v1=<hex HMAC-SHA256>". The MAC
// covers "<t>.<body>".

var (
	ErrBadSignature   = errors.New("webhook signature mismatch")
	ErrStaleSignature = errors.New("webhook signature too old")
)

func mac(secret string, ts int64, body []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(strconv.FormatInt(ts, 10)))
	m.Write([]byte{'.'})
	m.Write(body)
	return m.Sum(nil)
}

// Sign returns the X-Signature header value for body sent at ts.
func Sign(secret string, ts time.Time, body []byte) string {
	unix := ts.Unix()
	return "t=" + strconv.FormatInt(unix, 10) + ",v1=" + hex.EncodeToString(mac(secret, unix, body))
}

// Verify checks header against body. Signatures older than tolerance are
// rejected; a zero tolerance disables the age check.
func Verify(secret string, body []byte, header string, now time.Time, tolerance time.Duration) error {
	var (
		ts  int64
		sig []byte
		err error
	)
	for _, part := range strings.Split(header, ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "t":
			if ts, err = strconv.ParseInt(v, 10, 64); err != nil {
				return ErrBadSignature
			}
		case "v1":
			if sig, err = hex.DecodeString(v); err != nil {
				return ErrBadSignature
			}
		}
	}
	if ts == 0 || sig == nil {
		return ErrBadSignature
	}
	if !hmac.Equal(mac(secret, ts, body), sig) {
		return ErrBadSignature
	}
	if tolerance > 0 && now.Sub(time.Unix(ts, 0)) > tolerance {
		return ErrStaleSignature
	}
	return nil
}
