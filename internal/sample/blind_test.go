package sample_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalnine/crosscheck/internal/sample"
)

func TestStripCommentsDropsCommentLines(t *testing.T) {
	src := strings.Join([]string{
		"# id: protocol-added-default-arg",
		"# EXPECTED:",
		"#   mypy: Error (inconsistent default argument)",
		"from typing import Protocol",
		"",
		"class Notifier(Protocol):",
		"    # pyright: No error",
		"    def send(self, message: str) -> None: ...",
	}, "\n")

	got := sample.StripComments(src)

	srcLines := strings.Split(src, "\n")
	gotLines := strings.Split(got, "\n")
	assert.Less(t, len(gotLines), len(srcLines))
	for _, l := range srcLines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			assert.NotContains(t, got, strings.TrimSpace(l))
		}
	}
	assert.Contains(t, got, "class Notifier(Protocol):")
	assert.Contains(t, got, "    def send(self, message: str) -> None: ...")
}

func TestStripCommentsWithoutComments(t *testing.T) {
	src := "x: int = 1\nprint(x)"
	assert.Equal(t, src, sample.StripComments(src))
}

func TestStripCommentsTrailing(t *testing.T) {
	src := `use_reader(FileReader())  # Checkers disagree on default arg compatibility`
	assert.Equal(t, "use_reader(FileReader())", sample.StripComments(src))
}

func TestStripCommentsKeepsHashInStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"double quoted", `tag = "#hashtag"  # note`, `tag = "#hashtag"`},
		{"single quoted", `tag = '#x'`, `tag = '#x'`},
		{"escaped quote", `s = "a\"#b"  # c`, `s = "a\"#b"`},
		{"f-string", `print(f"{x} # {y}")`, `print(f"{x} # {y}")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sample.StripComments(tt.src))
		})
	}
}

func TestStripCommentsKeepsTypePragma(t *testing.T) {
	src := `x: int = "a"  # type: ignore[assignment]`
	assert.Equal(t, src, sample.StripComments(src))
}

func TestStripCommentsMultilineStringIsCode(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> None:",
		`    """Docstring`,
		"    # hash-led line inside the string",
		"    text after # stays",
		`    """`,
		"    return None  # trailing",
	}, "\n")
	want := strings.Join([]string{
		"def f() -> None:",
		`    """Docstring`,
		"    text after # stays",
		`    """`,
		"    return None",
	}, "\n")
	assert.Equal(t, want, sample.StripComments(src))
}

func TestStripCommentsDropsHashLinesInsideStrings(t *testing.T) {
	src := "NOTES = '''\n# mypy: error expected here\n'''\nx: int = 1"
	got := sample.StripComments(src)

	assert.Equal(t, "NOTES = '''\n'''\nx: int = 1", got)
	assert.Less(t, strings.Count(got, "\n"), strings.Count(src, "\n"))
	assert.NotContains(t, got, "mypy")
}

func TestStripCommentsCutsCommentAfterTypePragma(t *testing.T) {
	assert.Equal(t, `x: int = "a"  # type: ignore`,
		sample.StripComments(`x: int = "a"  # type: ignore  # EXPECTED: mypy error, ty silent`))
	assert.Equal(t, `y = f()  # type: ignore[misc]`,
		sample.StripComments(`y = f()  # type: ignore[misc] # REASON: "quoted" note`))
}

func TestStripCommentsDropsAnnotationBlocks(t *testing.T) {
	src := strings.Join([]string{
		"from typing import Final",
		"",
		"class Base:",
		"    x: Final[int] = 1",
		"",
		`"""`,
		"# EXPECTED:",
		"   mypy: Error - overrides final attribute",
		"   ty: No error",
		`"""`,
		`"""`,
		"# ACTUAL OUTPUT:",
		"#   ty: All checks passed!",
		`"""`,
	}, "\n")

	got := sample.StripComments(src)
	assert.NotContains(t, got, "overrides final attribute")
	assert.NotContains(t, got, "All checks passed")
	assert.NotContains(t, got, `"""`)
	assert.Contains(t, got, "x: Final[int] = 1")
}

func TestStripCommentsKeepsOrdinaryStringBlocks(t *testing.T) {
	src := strings.Join([]string{
		`"""Module docstring."""`,
		"import os",
	}, "\n")
	assert.Equal(t, src, sample.StripComments(src))
}
