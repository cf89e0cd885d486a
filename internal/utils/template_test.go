package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"double braces", "Hi {{name}}, quick question", "Hi Sam, quick question"},
		{"double braces upper", "Hi {{Name}}!", "Hi Sam!"},
		{"bracket capital", "Hey [Name], got a minute?", "Hey Sam, got a minute?"},
		{"bracket lower", "Hey [name]!", "Hey Sam!"},
		{"single brace", "Hello {name}", "Hello Sam"},
		{"angle brackets", "Hello <name> and <Name>", "Hello Sam and Sam"},
		{"underscore run", "Hi ___, it's me", "Hi Sam, it's me"},
		{"long underscore run", "Hi ______!", "Hi Sam!"},
		{"multiple occurrences", "{{name}} - [Name] - <name>", "Sam - Sam - Sam"},
		{"no placeholder", "Just a plain message", "Just a plain message"},
		{"short underscores untouched", "a __ b", "a __ b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Personalize(tt.body, "Sam"))
		})
	}
}

func TestPersonalizeEmptyName(t *testing.T) {
	assert.Equal(t, "Hi , quick question", Personalize("Hi {{name}}, quick question", ""))
}
