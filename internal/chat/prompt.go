package chat

import (
	"fmt"
	"strings"

	"github.com/edgemoorlf/smootie/internal/provider"
	"github.com/edgemoorlf/smootie/internal/session"
)

// DefaultPersona is the base system instruction when no persona override
// is configured.
const DefaultPersona = "You are Smootie, a friendly virtual companion shown on screen as a video character. " +
	"Keep replies short, warm, and conversational. Answer in the same language the user speaks."

// ActionToolName is the single function exposed to the model when the
// request carries an action catalog.
const ActionToolName = "trigger_video_action"

// Action is one entry of the client-supplied action catalog. It is
// request-scoped: used to build the system prompt and the tool schema,
// never stored in the session.
type Action struct {
	Name     string   `json:"action"`
	Video    string   `json:"video"`
	Keywords []string `json:"keywords"`
	HasAudio bool     `json:"has_audio"`
}

// buildMessages assembles the provider prompt: system instruction, then
// the capped recent history in original order, then the new user message.
// It is a pure transformation; the session store is never touched here.
func buildMessages(persona string, actions []Action, history []session.Turn, userText string) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: systemPrompt(persona, actions),
	})

	for _, turn := range history {
		role := provider.RoleUser
		if turn.Role == session.RoleAssistant {
			role = provider.RoleAssistant
		}
		messages = append(messages, provider.Message{Role: role, Content: turn.Content})
	}

	return append(messages, provider.Message{Role: provider.RoleUser, Content: userText})
}

// systemPrompt extends the persona text with the action catalog and the
// behavioral rules for triggering actions. With an empty catalog the
// persona text is returned unchanged.
func systemPrompt(persona string, actions []Action) string {
	if len(actions) == 0 {
		return persona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nYou can trigger pre-recorded video actions by calling the ")
	b.WriteString(ActionToolName)
	b.WriteString(" function. Available actions:\n")

	for _, a := range actions {
		audio := "no prerecorded audio"
		if a.HasAudio {
			audio = "with prerecorded audio"
		}
		example := ""
		if len(a.Keywords) > 0 {
			example = fmt.Sprintf(", e.g. %q", a.Keywords[0])
		}
		fmt.Fprintf(&b, "- %s: plays %s (%s)%s\n", a.Name, a.Video, audio, example)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Match the user's intent semantically; do not require the exact trigger words.\n")
	b.WriteString("- When the matched action has prerecorded audio, call the function and return no text at all.\n")
	b.WriteString("- When it has no prerecorded audio, call the function and also reply with one short accompanying sentence.\n")
	b.WriteString("- For ordinary conversation, just reply normally without calling the function.\n")

	return b.String()
}

// actionTool is the schema for the one callable function: which action to
// trigger and which video backs it. has_audio is optional and defaults to
// false.
func actionTool() provider.Tool {
	return provider.Tool{
		Name:        ActionToolName,
		Description: "Trigger a pre-recorded video action for the on-screen character.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"description": "Name of the action to trigger.",
				},
				"video": map[string]any{
					"type":        "string",
					"description": "Video file that plays this action.",
				},
				"has_audio": map[string]any{
					"type":        "boolean",
					"description": "Whether the video carries prerecorded audio.",
					"default":     false,
				},
			},
			"required": []string{"action", "video"},
		},
	}
}
