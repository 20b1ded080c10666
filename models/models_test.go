package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatModels(t *testing.T) {
	list := ChatModels()
	require.Len(t, list, 3)

	ids := make([]string, len(list))
	for i, m := range list {
		ids[i] = m.ID
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.Description)
	}
	assert.Equal(t, []string{ChatModelID, ChatModelReasoningID, ChatModelGeminiFlashLiteID}, ids)
	assert.Contains(t, ids, DefaultChatModel)

	list[0].Name = "changed"
	assert.Equal(t, "GPT-4o", ChatModels()[0].Name)
}

func TestLookup(t *testing.T) {
	m, ok := Lookup(ChatModelReasoningID)
	require.True(t, ok)
	assert.Equal(t, "o1-mini (Reasoning)", m.Name)

	_, ok = Lookup(TitleModelID)
	assert.False(t, ok, "title model is not user selectable")
}
