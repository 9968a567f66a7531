package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	mocks "zoi/sentinel/internal/providers"
	"zoi/sentinel/pkg/providers"
)

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL:          url,
		APIKey:           "sk-test",
		MaxRounds:        3,
		WebSearchMaxUses: 5,
		MaxRetries:       0,
		RetryBackoff:     time.Millisecond,
	})
}

func TestClient_SingleTurn(t *testing.T) {
	ms := mocks.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/v1/messages", mocks.MockResponse{
		Body: mocks.AnthropicMessage(StopEndTurn, mocks.TextBlock(`{"ncm_code": "0901"}`)),
	})

	sub, err := newTestClient(ms.URL()).Submit(context.Background(), "pesquise café")
	mocks.AssertNoError(t, err)
	if sub.Result == nil || sub.Result.Status != providers.PollCompleted {
		t.Fatalf("Result = %+v", sub.Result)
	}
	if sub.Result.Payload != `{"ncm_code": "0901"}` {
		t.Errorf("Payload = %q", sub.Result.Payload)
	}
	if sub.Handle.ID != "msg_test" {
		t.Errorf("Handle.ID = %q", sub.Handle.ID)
	}

	req := ms.Requests()[0]
	if req.Header.Get("x-api-key") != "sk-test" || req.Header.Get("anthropic-version") != DefaultVersion {
		t.Errorf("headers = %v", req.Header)
	}
	var body messagesRequest
	if err := req.JSON(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 1 || body.Tools[0].Type != webSearchType || body.Tools[0].MaxUses != 5 {
		t.Errorf("Tools = %+v", body.Tools)
	}
	if body.Model != DefaultModel || body.MaxTokens != DefaultMaxTokens {
		t.Errorf("model = %q max_tokens = %d", body.Model, body.MaxTokens)
	}
}

func TestClient_ToolUseLoop(t *testing.T) {
	ms := mocks.NewMockServer()
	defer ms.Close()
	ms.SetSequence("/v1/messages",
		mocks.MockResponse{Body: mocks.AnthropicMessage(StopToolUse,
			mocks.TextBlock("Consultando EUR-Lex."),
			mocks.ToolUseBlock("toolu_1", "lookup", map[string]any{"q": "ncm"}),
			mocks.ToolUseBlock("toolu_2", "lookup", map[string]any{"q": "mrl"}),
		)},
		mocks.MockResponse{Body: mocks.AnthropicMessage(StopPauseTurn, mocks.TextBlock("Consultando RASFF."))},
		mocks.MockResponse{Body: mocks.AnthropicMessage(StopEndTurn, mocks.TextBlock(`{"ncm_code": "0801"}`))},
	)

	sub, err := newTestClient(ms.URL()).Submit(context.Background(), "pesquise açaí")
	mocks.AssertNoError(t, err)
	if sub.Result.Status != providers.PollCompleted {
		t.Fatalf("Status = %s reason %q", sub.Result.Status, sub.Result.Reason)
	}
	payload := sub.Result.Payload.(string)
	for _, part := range []string{"Consultando EUR-Lex.", "Consultando RASFF.", `{"ncm_code": "0801"}`} {
		if !strings.Contains(payload, part) {
			t.Errorf("payload %q missing %q", payload, part)
		}
	}

	reqs := ms.Requests()
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}

	// Round two: user prompt, assistant turn, tool results for both tool_use blocks.
	var second messagesRequest
	if err := reqs[1].JSON(&second); err != nil {
		t.Fatal(err)
	}
	if len(second.Messages) != 3 || second.Messages[1].Role != roleAssistant || second.Messages[2].Role != roleUser {
		t.Fatalf("round two messages = %+v", second.Messages)
	}
	var acks []toolResultBlock
	if err := json.Unmarshal(second.Messages[2].Content, &acks); err != nil {
		t.Fatal(err)
	}
	if len(acks) != 2 || acks[0].ToolUseID != "toolu_1" || acks[1].ToolUseID != "toolu_2" {
		t.Errorf("acks = %+v", acks)
	}

	// Round three: pause_turn adds only the assistant turn.
	var third messagesRequest
	if err := reqs[2].JSON(&third); err != nil {
		t.Fatal(err)
	}
	if len(third.Messages) != 4 || third.Messages[3].Role != roleAssistant {
		t.Errorf("round three messages = %d", len(third.Messages))
	}
}

func TestClient_Failures(t *testing.T) {
	t.Run("max tokens", func(t *testing.T) {
		ms := mocks.NewMockServer()
		defer ms.Close()
		ms.SetResponse("/v1/messages", mocks.MockResponse{Body: mocks.AnthropicMessage(StopMaxTokens, mocks.TextBlock("partial"))})

		sub, err := newTestClient(ms.URL()).Submit(context.Background(), "x")
		mocks.AssertNoError(t, err)
		if sub.Result.Status != providers.PollFailed || !strings.Contains(sub.Result.Reason, StopMaxTokens) {
			t.Errorf("Result = %+v", sub.Result)
		}
	})

	t.Run("rounds exhausted", func(t *testing.T) {
		ms := mocks.NewMockServer()
		defer ms.Close()
		ms.SetResponse("/v1/messages", mocks.MockResponse{Body: mocks.AnthropicMessage(StopPauseTurn)})

		sub, err := newTestClient(ms.URL()).Submit(context.Background(), "x")
		mocks.AssertNoError(t, err)
		if sub.Result.Status != providers.PollFailed {
			t.Errorf("Status = %s", sub.Result.Status)
		}
		if n := ms.RequestCount("/v1/messages"); n != 3 {
			t.Errorf("requests = %d, want 3", n)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		ms := mocks.NewMockServer()
		defer ms.Close()
		ms.SetResponse("/v1/messages", mocks.MockResponse{StatusCode: http.StatusUnauthorized})

		_, err := newTestClient(ms.URL()).Submit(context.Background(), "x")
		mocks.AssertErrorAs[*providers.SubmissionError](t, err)
		mocks.AssertErrorAs[*providers.AuthError](t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := New(Config{}).Submit(context.Background(), "x")
		mocks.AssertErrorAs[*providers.ConfigError](t, err)
	})

	t.Run("poll unsupported", func(t *testing.T) {
		_, err := newTestClient("http://unused").Poll(context.Background(), providers.Handle{ID: "msg"})
		mocks.AssertErrorAs[*providers.PollError](t, err)
	})
}
