// Package events provides the notification port used by services.
//
// Services publish domain events (a generation was created, a candidate was
// reviewed, a flashcard changed) through an injected EventEmitter without
// knowing who consumes them. InMemoryEventEmitter fans events out to
// registered EventHandlers; LoggingHandler records them in the process log.
// There is no package-level emitter: every consumer receives one explicitly.
package events
