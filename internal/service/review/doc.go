// Package review applies accept, reject and edit actions to the candidates of
// a generation. Each action runs in one transaction that locks the candidate
// row, so the candidate status, the saved flashcard and the generation's
// acceptance counters always change together.
package review
