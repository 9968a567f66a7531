// Package anthropic adapts the Anthropic Messages API to providers.Backend as
// a synchronous, turn-loop research backend.
//
// The research prompt is sent with the server-side web search tool enabled.
// While the model answers with stop_reason tool_use or pause_turn, the client
// re-posts the conversation (adding a tool_result acknowledgement for every
// client tool_use block) until end_turn or MaxRounds. Text from every round
// is concatenated into the payload.
//
// Submit therefore returns a terminal result directly; Poll is never needed
// and always fails.
package anthropic
