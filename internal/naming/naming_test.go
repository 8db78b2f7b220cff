package naming

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Week 1", "Week 1"},
		{"illegal characters", `Q&A: what/why? "really" <yes>|no*`, "Q&A whatwhy really yesno"},
		{"control characters", "Line\tbreak\n", "Linebreak"},
		{"trailing dots and spaces", "  Intro. . ", "Intro"},
		{"only dots", "..", ""},
		{"reserved windows name", "con", ""},
		{"reserved with extension", "LPT1.txt", ""},
		{"unicode kept", "Глава 2 – Ряды", "Глава 2 – Ряды"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	got := Sanitize(strings.Repeat("я", 300))

	assert.LessOrEqual(t, len(got), maxNameBytes)
	assert.True(t, utf8.ValidString(got))
}

func TestBuildTitle(t *testing.T) {
	got := BuildTitle([]string{"Week 1", " ", "Lesson: Limits", "Quiz/1"})

	assert.Equal(t, "Week 1 - Lesson Limits - Quiz1", got)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "1 - Intro", BaseName(0, "Intro"))
	assert.Equal(t, "12 - Week 2 - Quiz", BaseName(11, "Week 2 - Quiz"))
	assert.Equal(t, "3", BaseName(2, ""))

	long := BaseName(99, strings.Repeat("a", 400))
	assert.LessOrEqual(t, len(long), maxNameBytes)
	assert.True(t, strings.HasPrefix(long, "100 - "))
}
