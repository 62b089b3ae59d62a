// Package openai implements the ai.Embedder interface against any
// OpenAI-compatible embedding API (OpenAI, Ollama, LocalAI, vLLM).
package openai
