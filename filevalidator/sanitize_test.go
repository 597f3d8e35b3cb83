package filevalidator

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{
			name:      "clean name unchanged",
			input:     "report.pdf",
			maxLength: 255,
			expected:  "report.pdf",
		},
		{
			name:      "unsafe characters become underscores",
			input:     `a<b>c:d"e/f\g|h?i*j.pdf`,
			maxLength: 255,
			expected:  "a_b_c_d_e_f_g_h_i_j.pdf",
		},
		{
			name:      "whitespace run collapses to one underscore",
			input:     "scan   page\tone.pdf",
			maxLength: 255,
			expected:  "scan_page_one.pdf",
		},
		{
			name:      "adjacent replacements collapse",
			input:     "My File <v2>.pdf",
			maxLength: 255,
			expected:  "My_File_v2_.pdf",
		},
		{
			name:      "existing underscore runs collapse",
			input:     "a___b.pdf",
			maxLength: 255,
			expected:  "a_b.pdf",
		},
		{
			name:      "leading and trailing underscores trimmed",
			input:     "  draft.pdf  ",
			maxLength: 255,
			expected:  "draft.pdf",
		},
		{
			name:      "all-unsafe name trims to empty",
			input:     `///\\\`,
			maxLength: 255,
			expected:  "",
		},
		{
			name:      "truncated to max length",
			input:     strings.Repeat("a", 300) + ".pdf",
			maxLength: 255,
			expected:  strings.Repeat("a", 255),
		},
		{
			name:      "zero max length disables truncation",
			input:     strings.Repeat("a", 300),
			maxLength: 0,
			expected:  strings.Repeat("a", 300),
		},
		{
			name:      "truncation never splits a rune",
			input:     strings.Repeat("a", 253) + "日本",
			maxLength: 255,
			expected:  strings.Repeat("a", 253), // next rune needs 3 bytes
		},
		{
			name:      "unicode letters survive",
			input:     "résumé 2024.pdf",
			maxLength: 255,
			expected:  "résumé_2024.pdf",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := SanitizeFileName(tc.input, tc.maxLength)
			if result != tc.expected {
				t.Errorf("SanitizeFileName(%q, %d) = %q, expected %q",
					tc.input, tc.maxLength, result, tc.expected)
			}
		})
	}
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	inputs := []string{
		"report.pdf",
		"My File <v2>.pdf",
		"  scan: page/one .pdf",
		`a<b>c:d"e.pdf`,
		strings.Repeat("x", 300) + ".pdf",
		"résumé 2024.pdf",
	}

	for _, input := range inputs {
		once := SanitizeFileName(input, 255)
		twice := SanitizeFileName(once, 255)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}
