// Package runner spawns the assistant CLI and streams its output.
//
// A Driver starts one Process per prompt. The prompt is written to the
// child's stdin, stdout is decoded incrementally and handed to the caller as
// it arrives, and the exit status is classified into a final text or an
// error:
//
//   - exit code 0, or a non-zero exit that still produced stdout, is success;
//   - a non-zero exit with empty stdout is an *ExitError carrying stderr;
//   - an executable that cannot be started is a *SpawnError;
//   - a process stopped with Kill reports ErrKilled.
//
// Every live Process is tracked in a Registry so the host can drain them
// all on shutdown.
package runner
