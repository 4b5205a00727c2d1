//go:build !integration

package model_test

import (
	"testing"

	"lms-checkout-gateway/internal/domain/model"
)

func TestSanitizeSessionID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"clean token passes through", "cs_test_abc123", "cs_test_abc123"},
		{"whitespace trimmed", "  cs_test_abc123\n", "cs_test_abc123"},
		{"fragment concat stripped", "cs_test_abc123#success", "cs_test_abc123"},
		{"query concat stripped", "cs_test_abc123?utm_source=mail", "cs_test_abc123"},
		{"duplicated token keeps first", "cs_test_XXXXcs_test_YYYY", "cs_test_XXXX"},
		{"duplicated then fragment", "cs_a1cs_b2#x", "cs_a1"},
		{"empty input", "", ""},
		{"only separators", "?#", ""},
		{"leading separator", "?cs_test_abc", ""},
		{"no prefix left untouched", "notarealtoken", "notarealtoken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := model.SanitizeSessionID(tc.in); got != tc.want {
				t.Errorf("SanitizeSessionID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsValidSessionID(t *testing.T) {
	long := "cs_"
	for len(long) <= model.SessionIDMaxLen {
		long += "a"
	}

	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"valid test token", "cs_test_abc123", true},
		{"valid live token", "cs_live_def456", true},
		{"empty", "", false},
		{"wrong prefix", "notarealtoken", false},
		{"prefix only", "cs_", false},
		{"over max length", long, false},
		{"at max length", long[:model.SessionIDMaxLen], true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := model.IsValidSessionID(tc.in); got != tc.want {
				t.Errorf("IsValidSessionID(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
