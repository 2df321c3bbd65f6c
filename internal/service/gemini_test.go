package service

import (
	"testing"

	"cropplanner/internal/model"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatHistory_MergesSameRoleTurns(t *testing.T) {
	got := chatHistory([]model.ChatMessage{
		{Role: model.RoleUser, Content: "When to sow wheat?"},
		{Role: model.RoleUser, Content: "In Punjab."},
		{Role: model.RoleAssistant, Content: "October to December."},
		{Role: model.RoleAssistant, Content: " "},
		{Role: model.RoleUser, Content: "And maize?"},
	})

	require.Len(t, got, 3)
	assert.Equal(t, model.RoleUser, got[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("When to sow wheat?"), genai.Text("In Punjab.")}, got[0].Parts)
	assert.Equal(t, geminiModelRole, got[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("October to December.")}, got[1].Parts)
	assert.Equal(t, model.RoleUser, got[2].Role)
}

func TestChatHistory_Empty(t *testing.T) {
	assert.Empty(t, chatHistory(nil))
}
