package generation

import "github.com/phrazzld/fiszki-api/internal/domain"

const (
	// MinCards and MaxCards bound the number of cards the model is asked for.
	MinCards = 5
	MaxCards = 10

	responseFormatName = "flashcards"
)

// SystemPrompt instructs the model how to write flashcards.
const SystemPrompt = `Jesteś ekspertem w tworzeniu fiszek edukacyjnych.
Na podstawie tekstu podanego przez użytkownika przygotuj od 5 do 10 fiszek.

Zasady:
- każda fiszka dotyczy jednego, konkretnego zagadnienia;
- przód (front) to jasno sformułowane pytanie lub pojęcie;
- tył (back) to zwięzła, poprawna odpowiedź na pytanie z przodu;
- nie powtarzaj tych samych informacji na różnych fiszkach;
- przód i tył mają najwyżej 1000 znaków każdy;
- pisz wyłącznie po polsku.

Odpowiedz wyłącznie poprawnym JSON-em w formacie:
{"flashcards":[{"front":"...","back":"..."}]}
Nie dodawaj żadnego tekstu poza JSON-em.`

// flashcardsReply is the structured reply expected from the model. Only the
// presence of the array is checked at decode time; Service inspects the
// cards so empty and malformed replies get distinct codes.
type flashcardsReply struct {
	Flashcards []domain.CardText `json:"flashcards" validate:"required"`
}

// responseSchema is the JSON schema sent with every generation request.
func responseSchema() map[string]any {
	text := func(max int) map[string]any {
		return map[string]any{"type": "string", "minLength": 1, "maxLength": max}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"flashcards"},
		"properties": map[string]any{
			"flashcards": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": MaxCards,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"front", "back"},
					"properties": map[string]any{
						"front": text(domain.AIFrontMaxLength),
						"back":  text(domain.AIBackMaxLength),
					},
				},
			},
		},
	}
}
