// Package domain defines the core entities of the flashcard service: manually
// authored and AI-produced flashcards, generations with their acceptance
// counters, per-generation candidates and the review actions that settle them.
//
// Types here carry their own validation and have no dependencies on storage or
// transport packages.
package domain
