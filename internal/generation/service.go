package generation

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/events"
	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/redact"
	"github.com/phrazzld/fiszki-api/internal/store"
)

const (
	DefaultMinInputLength = 1000
	DefaultMaxInputLength = 10000

	// errorLogTimeout bounds the error-log write, which runs detached from
	// the request context.
	errorLogTimeout = 5 * time.Second

	maxErrorMessageLength = 2000
)

// ErrGenerationNotFound is returned by Get for missing or foreign generations.
var ErrGenerationNotFound = errors.New("generation not found")

// Config bounds generation requests.
type Config struct {
	MinInputLength int
	MaxInputLength int
	// Model is the configured default model, recorded in error logs and used
	// when the provider does not report which model served the request.
	Model string
}

// Candidate is a generated card returned to the caller for review.
type Candidate struct {
	Position int           `json:"position"`
	Front    string        `json:"front"`
	Back     string        `json:"back"`
	Source   domain.Source `json:"source"`
}

// Result is the outcome of a successful generation.
type Result struct {
	GenerationID int64       `json:"generation_id"`
	Model        string      `json:"model"`
	Flashcards   []Candidate `json:"flashcards"`
}

// Service generates flashcard candidates from text.
type Service interface {
	// Generate runs the pipeline for userID. Failures are *Error values.
	Generate(ctx context.Context, userID uuid.UUID, inputText string) (*Result, error)

	// Get returns the user's generation with its candidates.
	// Returns ErrGenerationNotFound if absent or owned by someone else.
	Get(ctx context.Context, userID uuid.UUID, generationID int64) (*domain.Generation, error)

	// ListErrors returns the user's most recent failed generation attempts.
	ListErrors(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.GenerationErrorLog, error)
}

type service struct {
	client      llm.ChatClient
	tx          store.Transactor
	generations store.GenerationStore
	errorLogs   store.GenerationErrorLogStore
	emitter     events.EventEmitter
	cfg         Config
	logger      *slog.Logger
}

// NewService creates a generation Service. client may be nil when no
// provider is configured; every Generate call then fails with
// CodeServiceUnavailable.
func NewService(
	client llm.ChatClient,
	tx store.Transactor,
	generations store.GenerationStore,
	errorLogs store.GenerationErrorLogStore,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
) (Service, error) {
	if tx == nil {
		return nil, errors.New("transactor cannot be nil")
	}
	if generations == nil {
		return nil, errors.New("generation store cannot be nil")
	}
	if errorLogs == nil {
		return nil, errors.New("generation error log store cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinInputLength <= 0 {
		cfg.MinInputLength = DefaultMinInputLength
	}
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = DefaultMaxInputLength
	}
	if cfg.MaxInputLength < cfg.MinInputLength {
		return nil, fmt.Errorf("max input length %d is below min input length %d",
			cfg.MaxInputLength, cfg.MinInputLength)
	}

	return &service{
		client:      client,
		tx:          tx,
		generations: generations,
		errorLogs:   errorLogs,
		emitter:     emitter,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "generation_service")),
	}, nil
}

// attempt carries what is known about a request for error logging.
type attempt struct {
	userID uuid.UUID
	hash   string
	length int
	model  string
}

// HashText returns the hex SHA-256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Generate implements Service.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, inputText string) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return nil, newError(CodeMissingUserID, "user id is required", nil)
	}

	text := strings.TrimSpace(inputText)
	a := attempt{
		userID: userID,
		hash:   HashText(text),
		length: utf8.RuneCountInString(text),
		model:  s.cfg.Model,
	}

	if genErr := s.validateInput(text, a.length); genErr != nil {
		return nil, s.fail(ctx, a, genErr)
	}

	if s.client == nil {
		return nil, s.fail(ctx, a, newError(CodeServiceUnavailable, "flashcard generation is not configured", llm.ErrNotConfigured))
	}

	start := time.Now()
	var reply flashcardsReply
	resp, err := s.client.SendChat(ctx,
		[]llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		llm.WithResponseFormat(llm.ResponseFormat{
			Name:   responseFormatName,
			Strict: true,
			Schema: responseSchema(),
			Into:   &reply,
		}),
	)
	if err != nil {
		return nil, s.fail(ctx, a, classifyLLMError(err))
	}
	if resp.Model != "" {
		a.model = resp.Model
	}

	cards, genErr := normalizeCards(reply.Flashcards)
	if genErr != nil {
		return nil, s.fail(ctx, a, genErr)
	}

	gen, err := domain.NewGeneration(userID, a.hash, a.length, a.model, cards)
	if err != nil {
		return nil, s.fail(ctx, a, newError(CodeInvalidFlashcardFormat, "generated flashcards are invalid", err))
	}

	err = s.tx.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.generations.WithTx(tx).Create(ctx, gen)
	})
	if err != nil {
		return nil, s.fail(ctx, a, newError(CodePersistenceError, "failed to save generation", err))
	}

	log.Info("generation created",
		slog.Int64("generation_id", gen.ID),
		slog.String("user_id", userID.String()),
		slog.String("model", gen.Model),
		slog.Int("generated_count", gen.GeneratedCount),
		slog.Int("input_length", a.length),
		slog.Duration("duration", time.Since(start)))

	events.Emit(ctx, s.emitter, events.TypeGenerationCreated, userID, events.GenerationCreatedPayload{
		GenerationID:   gen.ID,
		Model:          gen.Model,
		GeneratedCount: gen.GeneratedCount,
	})

	result := &Result{
		GenerationID: gen.ID,
		Model:        gen.Model,
		Flashcards:   make([]Candidate, 0, len(gen.Candidates)),
	}
	for _, c := range gen.Candidates {
		result.Flashcards = append(result.Flashcards, Candidate{
			Position: c.Position,
			Front:    c.Front,
			Back:     c.Back,
			Source:   domain.SourceAIFull,
		})
	}
	return result, nil
}

func (s *service) validateInput(text string, length int) *Error {
	switch {
	case text == "":
		return newError(CodeMissingInputText, "input text is required", nil)
	case length < s.cfg.MinInputLength:
		return newError(CodeInputTooShort,
			fmt.Sprintf("input text must be at least %d characters, got %d", s.cfg.MinInputLength, length), nil)
	case length > s.cfg.MaxInputLength:
		return newError(CodeInputTooLong,
			fmt.Sprintf("input text must be at most %d characters, got %d", s.cfg.MaxInputLength, length), nil)
	}
	return nil
}

// normalizeCards trims the model's cards and checks each one.
func normalizeCards(raw []domain.CardText) ([]domain.CardText, *Error) {
	if len(raw) == 0 {
		return nil, newError(CodeEmptyFlashcards, "model returned no flashcards", nil)
	}
	cards := make([]domain.CardText, 0, len(raw))
	for i, c := range raw {
		front := strings.TrimSpace(c.Front)
		back := strings.TrimSpace(c.Back)
		if err := domain.ValidateText("front", front, domain.AIFrontMaxLength); err != nil {
			return nil, newError(CodeInvalidFlashcardFormat, fmt.Sprintf("flashcard %d is invalid", i), err)
		}
		if err := domain.ValidateText("back", back, domain.AIBackMaxLength); err != nil {
			return nil, newError(CodeInvalidFlashcardFormat, fmt.Sprintf("flashcard %d is invalid", i), err)
		}
		cards = append(cards, domain.CardText{Front: front, Back: back})
	}
	return cards, nil
}

// classifyLLMError maps a chat client failure to a generation Code.
func classifyLLMError(err error) *Error {
	switch {
	case errors.Is(err, llm.ErrNotConfigured),
		errors.Is(err, llm.ErrAuthentication),
		errors.Is(err, llm.ErrForbidden),
		errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, llm.ErrServer):
		return newError(CodeServiceUnavailable, "flashcard generation is temporarily unavailable", err)
	case errors.Is(err, llm.ErrRateLimited):
		return newError(CodeLLMRateLimited, "flashcard generation is rate limited", err)
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, llm.ErrRequestTimeout):
		return newError(CodeLLMTimeout, "flashcard generation timed out", err)
	case errors.Is(err, llm.ErrValidation):
		return newError(CodeInvalidResponse, "model returned an invalid response", err)
	default:
		return newError(CodeLLMError, "flashcard generation failed", err)
	}
}

// fail records genErr in the error log and returns it. A logging failure is
// written to the process log and never replaces genErr.
func (s *service) fail(ctx context.Context, a attempt, genErr *Error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	level := slog.LevelError
	if genErr.Code.IsValidation() {
		level = slog.LevelInfo
	}
	log.Log(ctx, level, "generation failed",
		slog.String("code", string(genErr.Code)),
		slog.String("error", redact.Error(genErr)),
		slog.String("user_id", a.userID.String()),
		slog.Int("input_length", a.length))

	message := redact.Error(genErr)
	if utf8.RuneCountInString(message) > maxErrorMessageLength {
		message = string([]rune(message)[:maxErrorMessageLength])
	}
	entry := &domain.GenerationErrorLog{
		UserID:           a.userID,
		ErrorCode:        string(genErr.Code),
		ErrorMessage:     message,
		SourceTextHash:   a.hash,
		SourceTextLength: a.length,
		Model:            a.model,
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorLogTimeout)
	defer cancel()
	if err := s.errorLogs.Create(logCtx, entry); err != nil {
		log.Error("failed to write generation error log",
			slog.String("error", redact.Error(err)),
			slog.String("code", string(genErr.Code)))
	}
	return genErr
}

// Get implements Service.
func (s *service) Get(ctx context.Context, userID uuid.UUID, generationID int64) (*domain.Generation, error) {
	g, err := s.generations.GetByID(ctx, generationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrGenerationNotFound) || errors.Is(err, store.ErrNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return g, nil
}

// ListErrors implements Service.
func (s *service) ListErrors(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.GenerationErrorLog, error) {
	entries, err := s.errorLogs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation errors: %w", err)
	}
	return entries, nil
}
