package validation

import (
	"testing"
)

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"alice", true},
		{"bob_42", true},
		{"some-handle", true},
		{"X9_", true},

		// Invalid cases
		{"ab", false},        // too short
		{"", false},
		{"has space", false},
		{"dot.ted", false},
		{"café", false}, // non-ascii
		{"way_too_long_username_exceeding_thirty", false},
	}

	for _, tc := range tests {
		result := IsValidUsername(tc.name)
		if result != tc.valid {
			t.Errorf("IsValidUsername(%q) = %v, want %v", tc.name, result, tc.valid)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"alice@example.com", true},
		{"a.b+tag@sub.domain.io", true},

		// Invalid
		{"", false},
		{"no-at-sign", false},
		{"spaces in@example.com", false},
		{"missing@tld", false},
	}

	for _, tc := range tests {
		result := IsValidEmail(tc.email)
		if result != tc.valid {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tc.email, result, tc.valid)
		}
	}
}

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

func TestSanitizeUsername(t *testing.T) {
	if got := SanitizeUsername("  Alice  "); got != "alice" {
		t.Errorf("SanitizeUsername = %q, want %q", got, "alice")
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("username", "alice"),
		ValidUsername("username", "alice"),
		ValidEmail("email", "alice@example.com"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("username", ""),
		ValidEmail("email", "invalid"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
	if errors.Error() == "" {
		t.Error("Expected non-empty error string")
	}
}

func TestValidUsernameEmptyPasses(t *testing.T) {
	// Empty is Required's job, not ValidUsername's
	if err := ValidUsername("username", "")(); err != nil {
		t.Errorf("Expected nil for empty username, got %v", err)
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
