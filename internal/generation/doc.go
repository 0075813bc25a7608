// Package generation turns free text into flashcard candidates.
//
// Service validates the input, asks an llm.ChatClient for 5 to 10 cards in
// Polish using a strict JSON schema, validates the reply, and stores the
// generation together with its pending candidates in one transaction.
// Every failure after the owner is known is recorded in the generation
// error log and returned as an *Error carrying a stable Code.
package generation
