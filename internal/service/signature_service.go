package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// HMACSignatureService seals certificates: the stored hash is
// HMAC-SHA256 over the certificate's canonical fields, hex encoded.
type HMACSignatureService struct{}

func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	return hex.EncodeToString(s.mac(secretKey, payload))
}

// Verify compares in constant time. A signature that is not valid hex
// never matches.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(s.mac(secretKey, payload), got)
}

// BuildCanonicalString writes each field as <byte length>:<value>, joined
// by "|". The length prefix keeps field boundaries unambiguous whatever
// the values contain.
func (s *HMACSignatureService) BuildCanonicalString(fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

func (s *HMACSignatureService) mac(secretKey, payload string) []byte {
	m := hmac.New(sha256.New, []byte(secretKey))
	m.Write([]byte(payload))
	return m.Sum(nil)
}
