// Package llm provides chat-completion clients for the hosted language model
// providers the stub server uses to judge scam-check requests. It supports
// OpenAI and Anthropic, with retry, rate limiting and response caching.
package llm
