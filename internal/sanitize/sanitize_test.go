package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text passes through",
			input:    "Buy milk",
			expected: "Buy milk",
		},
		{
			name:     "script element and body removed",
			input:    "<script>alert(1)</script>Hello",
			expected: "Hello",
		},
		{
			name:     "nested plain text preserved",
			input:    "<b>bold</b> move",
			expected: "bold move",
		},
		{
			name:     "event handler attribute removed with its tag",
			input:    `<img src=x onerror="alert(1)">caption`,
			expected: "caption",
		},
		{
			name:     "javascript scheme stripped",
			input:    "javascript:alert(1)",
			expected: "alert(1)",
		},
		{
			name:     "javascript scheme with spacing stripped",
			input:    "JaVaScRiPt  : alert(1)",
			expected: "alert(1)",
		},
		{
			name:     "iframe removed",
			input:    `before<iframe src="http://evil.test"></iframe>after`,
			expected: "beforeafter",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "   spaced out   ",
			expected: "spaced out",
		},
		{
			name:     "entities folded back to text",
			input:    "fish &amp; chips",
			expected: "fish & chips",
		},
		{
			name:     "empty after sanitizing",
			input:    "<script>alert(1)</script>",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.expected {
				t.Errorf("Text(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
