// Package executors implements the built-in node kinds: triggers, HTTP
// calls, single-shot LLM generations, and chat webhook posts. The AI agent
// executor lives in the agent package.
package executors
