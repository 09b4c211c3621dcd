// Package orchestrator runs the gateway's turn loop.
//
// # Overview
//
// The Orchestrator subscribes to the event bus and treats every input event
// as one conversational turn:
//
//  1. Publish a typing event so the user's stream shows activity.
//  2. Gather context: cognition lookup and remembered history, both optional.
//  3. Prompt the model and classify the output (tool request or answer).
//  4. Execute requested tools and feed their results back into the prompt,
//     bounded by a fixed iteration limit.
//  5. Finalize: persist the exchange and publish exactly one output event.
//
// # Degradation and isolation
//
// Memory and cognition are collaborators, not dependencies: when they fail,
// the turn continues with a thinner prompt. Only a model failure aborts a
// turn, and an aborted turn publishes a single error event for the user.
// A panic inside one turn is recovered and isolated; the loop keeps
// consuming events.
//
// # Tools
//
// The tool registry is closed: memory_search and cognition_query. A request
// for any other tool feeds an "unavailable" notice back to the model, which
// must then answer with what it has.
//
// # Iteration limit
//
// When the model keeps requesting tools past the limit, the turn is forcibly
// finalized. The on_iteration_limit policy picks the answer: last_text uses
// the model's final raw output, generic_message substitutes a canned reply.
package orchestrator
