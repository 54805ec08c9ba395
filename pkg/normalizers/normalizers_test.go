package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "formatted US number", input: "(555) 123-4567", expected: "+15551234567"},
		{name: "dashed US number", input: "555-123-4567", expected: "+15551234567"},
		{name: "dotted US number", input: "555.123.4567", expected: "+15551234567"},
		{name: "eleven digits with leading 1", input: "15551234567", expected: "+15551234567"},
		{name: "already E.164", input: "+15551234567", expected: "+15551234567"},
		{name: "international passthrough", input: "+44 20 7946 0958", expected: "+442079460958"},
		{name: "short number gets bare plus", input: "12345", expected: "+12345"},
		{name: "empty", input: "", expected: ""},
		{name: "no digits", input: "ext.", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{"(555) 123-4567", "+44 20 7946 0958", "15551234567", "12345"}
	for _, input := range inputs {
		once := NormalizePhone(input)
		assert.Equal(t, once, NormalizePhone(once), "normalizing twice must be a no-op for %q", input)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@example.com", NormalizeEmail("  Jane.Doe@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"John  Smith", "john smith"},
		{"John Smith Jr.", "john smith"},
		{"O'Brien, Patrick", "obrien patrick"},
		{"  Mary   Jane  ", "mary jane"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeName(tt.input))
	}
}

func TestApply_UnknownNormalizer(t *testing.T) {
	assert.Equal(t, "UNCHANGED", Apply("UNCHANGED", "does-not-exist"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "jane@example.com", ApplyChain(" Jane@Example.com ", "trim", "lowercase"))
}
