// Package providers defines the research backend abstraction and the HTTP
// plumbing shared by backend adapters.
//
// # Backends
//
// Research backends come in two styles. Poll-style backends (manus) accept a
// task and report its progress on later polls. Turn-loop backends (anthropic)
// answer synchronously, possibly over several tool-use rounds. Both are
// adapted to the Backend interface:
//
//	sub, err := backend.Submit(ctx, prompt)
//	if err != nil {
//	    return err
//	}
//	result := sub.Result
//	for result == nil || !result.Status.Terminal() {
//	    time.Sleep(interval)
//	    result, err = backend.Poll(ctx, sub.Handle)
//	    ...
//	}
//
// A synchronous backend returns its terminal result inside the Submission, so
// the caller never polls it.
//
// # Errors
//
// Adapters report failures with typed errors that callers inspect with
// errors.As:
//
//   - ConfigError: the backend is missing a credential; no I/O was attempted
//   - SubmissionError: a task could not be created
//   - PollError: task status could not be retrieved
//   - AuthError, RateLimitError, TimeoutError, ParseError, ProviderError:
//     transport failures reported by HTTPProvider
//
// # Transport
//
// HTTPProvider provides connection pooling, exponential backoff on network
// errors and 5xx responses, and health tracking. 401/403 map to AuthError,
// 429 to RateLimitError, and other 4xx responses are returned without retry.
package providers
