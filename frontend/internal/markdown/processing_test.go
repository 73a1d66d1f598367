package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tp := New()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "emphasis",
			input:    "need **Go** and *React*",
			contains: []string{"<strong>Go</strong>", "<em>React</em>"},
		},
		{
			name:     "hard line breaks",
			input:    "line one\nline two",
			contains: []string{"line one<br>", "line two"},
		},
		{
			name:     "list",
			input:    "- figma\n- rust",
			contains: []string{"<ul>", "<li>figma</li>", "<li>rust</li>"},
		},
		{
			name:     "autolinked url opens in new tab",
			input:    "details at https://hackmit.org",
			contains: []string{`href="https://hackmit.org"`, `nofollow`, `target="_blank"`},
		},
		{
			name:        "raw html is escaped",
			input:       "<script>alert(1)</script>",
			notContains: []string{"<script>"},
		},
		{
			name:        "javascript links are dropped",
			input:       "[x](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
		{
			name:        "headings are not parsed",
			input:       "# not a heading",
			contains:    []string{"# not a heading"},
			notContains: []string{"<h1>"},
		},
		{
			name:     "strikethrough",
			input:    "~~closed~~",
			contains: []string{"<del>closed</del>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tp.Render(tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.notContains {
				assert.NotContains(t, got, bad)
			}
		})
	}
}

func TestRender_Blank(t *testing.T) {
	assert.Empty(t, New().Render("  \n "))
}

func TestPlain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  sorry, team is full  ", "sorry, team is full"},
		{"<b>bold</b> move", "bold move"},
		{"<script>alert(1)</script>thanks", "thanks"},
		{"sorry & good luck", "sorry & good luck"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Plain(tt.input), tt.input)
	}
}
