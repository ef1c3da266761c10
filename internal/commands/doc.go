// Package commands implements the chat command surface: register,
// unregister, list, example and help.
//
// The Handler is platform-neutral. It receives an Invocation describing who
// ran the command and where, calls into the registry, and returns a Reply.
// The discord package translates slash command interactions into calls on
// the Handler and sends the Reply back.
//
// Identity rules:
//   - In a direct message, register binds the name to the invoking user
//   - In a guild channel, register binds the name to the channel
//   - Unregister removes the invoking user's entry if there is one,
//     otherwise the current channel's
//
// Every command produces a reply. Registry contract violations (name taken,
// already registered, not registered, invalid name) become ephemeral
// rejection messages and never propagate as errors.
package commands
