package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_General(t *testing.T) {
	p := BuildPrompt("What is Django?")
	assert.False(t, p.IsCode)
	assert.Empty(t, p.Language)
	assert.True(t, strings.HasPrefix(p.Text, "You are a helpful AI assistant that provides detailed, well-structured responses.\n\n"))
	assert.True(t, strings.HasSuffix(p.Text, "\n\nUser question/request: What is Django?"))
}

func TestBuildPrompt_Code(t *testing.T) {
	p := BuildPrompt("write a javascript function to sort an array")
	assert.True(t, p.IsCode)
	assert.Equal(t, "javascript", p.Language)
	assert.Equal(t, GeneralPrompt("write a javascript function to sort an array"), p.Text)
	assert.NotContains(t, p.Text, "ask for clarification")
}

func TestBuildPrompt_DefaultLanguage(t *testing.T) {
	p := BuildPrompt("generate code to reverse a string")
	assert.True(t, p.IsCode)
	assert.Equal(t, "python", p.Language)
}
