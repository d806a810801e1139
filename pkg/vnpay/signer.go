package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// signQuery produces the canonical hash input for redirect-style messages:
// parameters sorted by name, values query-escaped with spaces rendered as "+",
// joined with "&".
func signQuery(secret string, params map[string]string) (hashData string, signature string) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "" || params[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	hashData = strings.Join(pairs, "&")
	return hashData, hmacSHA512(secret, hashData)
}

// signFields produces the hash input for the merchant API: the listed fields
// joined with "|" in the exact order given.
func signFields(secret string, fields ...string) string {
	return hmacSHA512(secret, strings.Join(fields, "|"))
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func signaturesEqual(a, b string) bool {
	return hmac.Equal([]byte(strings.ToLower(a)), []byte(strings.ToLower(b)))
}
