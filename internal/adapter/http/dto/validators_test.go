package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterCustomerRequest{
		Email:     "  ana@example.com  ",
		FirstName: " Ana ",
		LastName:  " Dupont",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "ana@example.com", req.Email)
	assert.Equal(t, "Ana", req.FirstName)
	assert.Equal(t, "Dupont", req.LastName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := BlacklistRequest{Reason: "abuse <script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_SkipsTaggedFields(t *testing.T) {
	req := LoginRequest{Email: " bob@example.com ", Password: "  p<a>ss  "}
	SanitizeStruct(&req)

	assert.Equal(t, "bob@example.com", req.Email)
	assert.Equal(t, "  p<a>ss  ", req.Password, "passwords must reach the hasher untouched")

	site := "https://example.com/?a=1&b=2"
	profile := MerchantProfileRequest{Website: &site}
	SanitizeStruct(&profile)
	assert.Equal(t, "https://example.com/?a=1&b=2", *profile.Website)
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	city := "  Lyon  "
	req := UpdateCustomerRequest{City: &city}
	SanitizeStruct(&req)

	assert.Equal(t, "Lyon", *req.City)
	assert.Nil(t, req.Phone)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
	SanitizeStruct(&s)
	assert.Equal(t, "hello", s)
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"QRC_0123456789abcdef0123456789abcdef",
		"cafes-and-bars",
		"a.b.c",
		"108234567890123456789",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"QRC 001",     // space
		"qr<001>",     // angle brackets
		"qr;DROP",     // semicolon
		"",            // empty
		"hello world", // space
		"qr\n001",     // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://cdn.example.com/shop/1.jpg", true},
		{"http://example.com", true},
		{"javascript:alert(1)", false},
		{"ftp://example.com/file.jpg", false},
		{"/relative/path.jpg", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		err := binding.Validator.ValidateStruct(&ImageRequest{URL: tt.url})
		assert.Equal(t, tt.valid, err == nil, "url=%q err=%v", tt.url, err)
	}
}

func TestMerchantProfileRequest_Missing(t *testing.T) {
	name, addr, city := "Cafe", "1 rue de la Paix", "Paris"
	lat, lon := 48.85, 2.35
	cat := uuid.New()

	req := MerchantProfileRequest{BusinessName: &name, CategoryID: &cat, Address: &addr, City: &city, Latitude: &lat}
	assert.Equal(t, "longitude", req.Missing())

	req.Longitude = &lon
	assert.Empty(t, req.Missing())

	in := req.Input()
	assert.Equal(t, &name, in.BusinessName)
	assert.Equal(t, cat, *in.CategoryID)
}

func TestNewPage_Defaults(t *testing.T) {
	page := NewPage([]string{}, 0, 0, 0)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page = NewPage([]string{"a"}, 41, 3, 10)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, int64(41), page.Total)
}
