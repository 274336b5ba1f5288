// Package gemini provides the Gemini-backed implementation of the
// agent.ModelClient interface. It translates conversation history and
// tool definitions into Gemini content and function declarations, and
// function-call parts in responses back into tool requests.
package gemini
