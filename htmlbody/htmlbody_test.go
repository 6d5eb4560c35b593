package htmlbody

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestContainsTags(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		want        bool
	}{
		{
			description: "plain text",
			input:       "Hello, this is my email body.",
			want:        false,
		},
		{
			description: "empty string",
			input:       "",
			want:        false,
		},
		{
			description: "stray angle bracket in prose",
			input:       "profit was 3 < 5 this quarter",
			want:        false,
		},
		{
			description: "simple element",
			input:       "<p>hello</p>",
			want:        true,
		},
		{
			description: "full document",
			input:       "<!DOCTYPE html><html><body>hi</body></html>",
			want:        true,
		},
		{
			description: "self-closing element",
			input:       "before<br/>after",
			want:        true,
		},
		{
			description: "markup after plain text",
			input:       "see the attached <strong>report</strong>",
			want:        true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if got := ContainsTags(tc.input); got != tc.want {
				t.Errorf(
					"%v: expected ContainsTags(%q) to be %v but got %v",
					tc.description,
					tc.input,
					tc.want,
					got,
				)
			}
		})
	}
}

func TestEnsure(t *testing.T) {
	t.Run("plain text gets the default style", func(t *testing.T) {
		got := Ensure("quarterly numbers attached")
		if !strings.Contains(got, defaultStyle) {
			t.Errorf("expected the default style in %q", got)
		}
		if !strings.Contains(got, "quarterly numbers attached") {
			t.Errorf("expected the original text in %q", got)
		}
	})

	t.Run("existing markup is used verbatim", func(t *testing.T) {
		in := "<h1>All green</h1>"
		if got := Ensure(in); got != in {
			t.Errorf("expected %q to pass through unchanged but got %q", in, got)
		}
	})

	t.Run("plain text is escaped", func(t *testing.T) {
		got := Ensure("3 < 5 && 5 > 3")
		if strings.Contains(got, "3 < 5") {
			t.Errorf("expected the angle bracket to be escaped in %q", got)
		}
		if !strings.Contains(got, "3 &lt; 5") {
			t.Errorf("expected an entity-escaped body in %q", got)
		}
	})
}

func TestBodyFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	want := "<html><body><p>prewritten body</p></body></html>"
	if err := afero.WriteFile(fs, "/mail/body.html", []byte(want), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := BodyFromFile(fs, "/mail/body.html")
	if err != nil {
		t.Fatalf("unexpected error reading the body file: %v", err)
	}
	if got != want {
		t.Errorf("expected body %q but got %q", want, got)
	}

	if _, err := BodyFromFile(fs, "/mail/missing.html"); err == nil {
		t.Error("expected an error for a missing body file")
	}
}
