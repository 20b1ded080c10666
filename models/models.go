// Package models is the catalog of chat models offered to users, and the
// identifiers callers use to ask the router for a model.
package models

// Identifiers understood by the router. Any other identifier resolves to the
// default chat model.
const (
	ChatModelID                = "chat-model"
	ChatModelReasoningID       = "chat-model-reasoning"
	ChatModelGeminiFlashID     = "chat-model-gemini-flash"
	ChatModelGeminiFlashLiteID = "chat-model-gemini-flash-lite"
	ArtifactModelID            = "artifact-model"
	TitleModelID               = "title-model"
)

// DefaultChatModel is the model selected when the user has not chosen one.
const DefaultChatModel = ChatModelID

// ChatModel describes an entry of the model picker.
type ChatModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var chatModels = []ChatModel{
	{
		ID:          ChatModelID,
		Name:        "GPT-4o",
		Description: "OpenAI flagship multimodal model for diverse tasks",
	},
	{
		ID:          ChatModelReasoningID,
		Name:        "o1-mini (Reasoning)",
		Description: "OpenAI lightweight reasoning model for chain-of-thought tasks",
	},
	{
		ID:          ChatModelGeminiFlashLiteID,
		Name:        "GPT-4o-mini",
		Description: "OpenAI fast, low-latency model optimized for speed and cost",
	},
}

// ChatModels returns the selectable chat models in display order.
// The returned slice is a copy.
func ChatModels() []ChatModel {
	return append([]ChatModel(nil), chatModels...)
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (ChatModel, bool) {
	for _, m := range chatModels {
		if m.ID == id {
			return m, true
		}
	}
	return ChatModel{}, false
}
