package anthropic

import "encoding/json"

// Stop reasons returned by the Messages API.
const (
	StopEndTurn      = "end_turn"
	StopSequence     = "stop_sequence"
	StopToolUse      = "tool_use"
	StopPauseTurn    = "pause_turn"
	StopMaxTokens    = "max_tokens"
	StopRefusal      = "refusal"
	blockText        = "text"
	blockToolUse     = "tool_use"
	blockToolResult  = "tool_result"
	webSearchType    = "web_search_20250305"
	webSearchName    = "web_search"
	roleUser         = "user"
	roleAssistant    = "assistant"
	toolResultAckMsg = "ok"
)

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Tools     []tool    `json:"tools,omitempty"`
	Messages  []message `json:"messages"`
}

// message keeps content raw so assistant turns are echoed back byte for
// byte, including block types this client does not model.
type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type tool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type messagesResponse struct {
	ID         string            `json:"id"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
	Content    []json.RawMessage `json:"content"`
	Usage      usage             `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type toolResultBlock struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}
