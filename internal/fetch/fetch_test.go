package fetch

import "testing"

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	raw := "First   line\r\n\r\n\tSecond\tline  \r\n\n"
	want := "First line\n\nSecond line"
	if got := CleanText(raw); got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

func TestCleanTextEmptyInput(t *testing.T) {
	t.Parallel()

	if got := CleanText("  \n \r\n \t "); got != "" {
		t.Fatalf("CleanText of whitespace = %q, want empty", got)
	}
}
