package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeField_Password(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{
			name:     "password field",
			key:      "password",
			value:    "mysecretpassword123",
			expected: "myse***********d123",
		},
		{
			name:     "PASSWORD uppercase",
			key:      "PASSWORD",
			value:    "SecretPass123",
			expected: "Secr*****s123",
		},
		{
			name:     "short password",
			key:      "pwd",
			value:    "abc",
			expected: "a*c",
		},
		{
			name:     "very short password",
			key:      "pwd",
			value:    "ab",
			expected: "**",
		},
		{
			name:     "empty password",
			key:      "password",
			value:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeField(tt.key, tt.value))
		})
	}
}

func TestSanitizeField_APIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{
			name:     "api_key field",
			key:      "api_key",
			value:    "sk-1234567890abcdef",
			expected: "sk-1***********cdef",
		},
		{
			name:     "apikey variant",
			key:      "apikey",
			value:    "sk-1234567890abcdef",
			expected: "sk-1***********cdef",
		},
		{
			name:     "authorization header",
			key:      "authorization",
			value:    "Bearer sk-12345678",
			expected: "Bear**********5678",
		},
		{
			name:     "access_token",
			key:      "access_token",
			value:    "tokenvalue123456",
			expected: "toke********3456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeField(tt.key, tt.value))
		})
	}
}

func TestSanitizeField_NonSensitive(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"job id", "job_id", "c2b7e6de-8c4f-4b38-9a71-1f50c2a9f001"},
		{"prompt", "prompt", "a login form with validation"},
		{"status", "status", "pending"},
		{"request id", "request_id", "mgrn0zfqda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, SanitizeField(tt.key, tt.value))
		})
	}
}
