package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username:    "  alice  ",
		Email:       " alice@example.com ",
		DisplayName: " Alice ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "Alice", req.DisplayName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := GiftRequest{
		Recipient: "bob",
		Message:   "congrats <script>alert('x')</script>!",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Message, "&lt;script&gt;")
	assert.NotContains(t, req.Message, "<script>")
}

func TestSanitizeStruct_SkipsSecrets(t *testing.T) {
	req := ExportWalletKeyRequest{
		Password:   "  p<a>ss  ",
		Passphrase: " a&b ",
		Nonce:      " n-1 ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "  p<a>ss  ", req.Password)
	assert.Equal(t, " a&b ", req.Passphrase)
	assert.Equal(t, "n-1", req.Nonce)
}

func TestSanitizeStruct_RecursesIntoSignatories(t *testing.T) {
	req := IssueCertificateRequest{
		Name:        " Go 101 ",
		Signatories: []SignatoryRequest{{Name: " <b>Dean</b> ", Title: " Dean "}},
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Go 101", req.Name)
	assert.Equal(t, "&lt;b&gt;Dean&lt;/b&gt;", req.Signatories[0].Name)
	assert.Equal(t, "Dean", req.Signatories[0].Title)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"ref-001",
		"REF_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"ref 001",     // space
		"ref<001>",    // angle brackets
		"ref;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"ref\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestDecimalAmount(t *testing.T) {
	type payload struct {
		Amount string `binding:"decimal_amount"`
	}
	for _, tc := range []struct {
		in string
		ok bool
	}{
		{"100", true},
		{"12.5", true},
		{"0.01", true},
		{"0.001", false},
		{"-1", false},
		{"abc", false},
	} {
		err := binding.Validator.ValidateStruct(&payload{Amount: tc.in})
		assert.Equal(t, tc.ok, err == nil, "amount %q", tc.in)
	}
}

func TestIssueCertificateRequest_Validation(t *testing.T) {
	valid := IssueCertificateRequest{
		Name:         "Go 101",
		Issuer:       "EduChain Academy",
		StudentName:  "Ada",
		StudentEmail: "ada@example.com",
		Date:         "2024-06-01",
		Color:        "#1a2b3c",
		Hours:        12,
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&valid))

	bad := valid
	bad.Date = "06/01/2024"
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	bad = valid
	bad.Hours = -1
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	bad = valid
	bad.Signatories = []SignatoryRequest{{Title: "no name"}}
	assert.Error(t, binding.Validator.ValidateStruct(&bad))
}
