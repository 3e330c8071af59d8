// Package acp serves the scribe agent over the Agent Client Protocol so
// editors can drive it as an external agent.
//
// Messages are newline-delimited JSON-RPC 2.0 objects on stdin and stdout.
// Nothing else may be written to stdout; diagnostics go to the zap logger.
//
// Supported methods:
//   - initialize
//   - session/new creates an in-memory conversation
//   - session/prompt runs one request and streams session/update notifications
//   - session/cancel (notification) stops the running request
//   - session/reset clears a conversation
//
// Raw assistant output streams as agent_thought_chunk updates. The cleaned
// answer follows as a single agent_message_chunk, and each workspace action
// is reported as a tool_call / tool_result pair. In prompt mode the server
// asks the client through session/request_permission before applying an
// action.
//
// resource_link blocks pointing inside the vault become the request's active
// documents. Files outside the vault are inlined into the user text.
package acp
