package nlp

import (
	"reflect"
	"testing"
)

func TestTokenizeAndLemmatize(t *testing.T) {
	tk := NewRuleTokenizer()

	cases := []struct {
		text string
		want []string
	}{
		{"Buy milk and eggs", []string{"buy", "milk", "egg"}},
		{"need groceries for the week", []string{"need", "grocery", "week"}},
		{"Running late, stopped for coffee!", []string{"run", "late", "stop", "coffee"}},
		{"a I at x", nil},
		{"", nil},
		{"semver v2.1.0 release", []string{"semver", "v2", "release"}},
	}
	for _, tc := range cases {
		got := tk.TokenizeAndLemmatize(tc.text)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("TokenizeAndLemmatize(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestTokenizePreservesDuplicates(t *testing.T) {
	tk := NewRuleTokenizer()
	got := tk.TokenizeAndLemmatize("coffee coffee tea")
	want := []string{"coffee", "coffee", "tea"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLemmatize(t *testing.T) {
	cases := map[string]string{
		"eggs":      "egg",
		"groceries": "grocery",
		"classes":   "class",
		"running":   "run",
		"planned":   "plan",
		"reading":   "read",
		"less":      "less",
		"bus":       "bus",
		"gas":       "gas",
		"ideas":     "idea",
		"sing":      "sing",
		"red":       "red",
	}
	for in, want := range cases {
		if got := lemmatize(in); got != want {
			t.Errorf("lemmatize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"groceries": "Groceries",
		"  WORK  ":  "Work",
		"tech":      "Tech",
		"":          "",
		"   ":       "",
		"x":         "X",
	}
	for in, want := range cases {
		if got := NormalizeTag(in); got != want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
