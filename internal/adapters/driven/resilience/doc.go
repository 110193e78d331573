// Package resilience wraps remote embedding and LLM services with
// client-side throttling and retries of transient failures.
//
// Adapters never retry on their own. The decorators here are opt-in
// through the retry.* and ratelimit.* settings, and they only retry
// errors for which domain.IsTransient reports true.
package resilience
