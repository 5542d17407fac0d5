package validation

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Valid input
	errors := Validate(
		Required("username", "shadow_blade"),
		Rate("headshot_rate", 0.42),
		Positive("duration_minutes", 30),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Invalid input
	errors = Validate(
		Required("username", ""),
		Rate("headshot_rate", 1.5),
		Positive("duration_minutes", 0),
	)
	if len(errors) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(errors))
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		value float64
		valid bool
	}{
		{0, true},
		{0.5, true},
		{1, true},
		{-0.01, false},
		{1.01, false},
	}

	for _, tc := range tests {
		err := Rate("rate", tc.value)()
		valid := err == nil
		if valid != tc.valid {
			t.Errorf("Rate(%v) valid=%v, want %v", tc.value, valid, tc.valid)
		}
	}
}

func TestNonNegative(t *testing.T) {
	if err := NonNegative("apm", 0)(); err != nil {
		t.Error("zero should be allowed")
	}
	if err := NonNegative("apm", -1)(); err == nil {
		t.Error("negative value should be rejected")
	}
}

func TestOneOf(t *testing.T) {
	if err := OneOf("severity", "high", "low", "medium", "high")(); err != nil {
		t.Errorf("Expected 'high' to be allowed, got %v", err)
	}
	if err := OneOf("severity", "extreme", "low", "medium", "high")(); err == nil {
		t.Error("Expected 'extreme' to be rejected")
	}
	// Empty passes; Required handles presence.
	if err := OneOf("severity", "", "low")(); err != nil {
		t.Errorf("Expected empty value to pass, got %v", err)
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}

func TestIDParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/players/:id", IDParamMiddleware(), func(c *gin.Context) {
		c.String(200, "ok")
	})

	tests := []struct {
		path string
		code int
	}{
		{"/players/1", 200},
		{"/players/42", 200},
		{"/players/0", 400},
		{"/players/-3", 400},
		{"/players/abc", 400},
	}

	for _, tc := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", tc.path, nil))
		if w.Code != tc.code {
			t.Errorf("GET %s = %d, want %d", tc.path, w.Code, tc.code)
		}
	}
}
