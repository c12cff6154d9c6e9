package domains

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/remote"
	"github.com/studyforge/studysync/internal/scheduler"
	"github.com/studyforge/studysync/internal/store"
)

// Decks is the domain adapter for flashcard decks. It owns the review
// flow: advancing a card applies the spaced-repetition schedule and
// bumps the deck timestamp so the review syncs upward.
type Decks struct {
	*Adapter[models.FlashcardDeck]
}

// NewDecks creates the decks adapter. maxSize <= 0 uses the default cap.
func NewDecks(s store.Store, client *remote.Client, maxSize int, logger *slog.Logger, now func() time.Time) *Decks {
	if maxSize <= 0 {
		maxSize = DefaultDeckCap
	}

	return &Decks{newAdapter[models.FlashcardDeck](DomainDecks, maxSize, s, client, logger, now)}
}

// CreateDeck stores a new empty deck with a fresh id.
func (d *Decks) CreateDeck(title, description, category, grade string) (models.FlashcardDeck, error) {
	deck := models.FlashcardDeck{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		Grade:       grade,
		UpdatedAt:   d.now().UnixMilli(),
	}

	if err := d.put(deck); err != nil {
		return models.FlashcardDeck{}, err
	}

	return deck, nil
}

// AddCard appends a new card to a deck. New cards start at mastery 0
// with no scheduled review, which makes them due immediately.
func (d *Decks) AddCard(deckID, question, answer string) (models.Flashcard, error) {
	deck, ok := d.Get(deckID)
	if !ok {
		return models.Flashcard{}, &notFoundError{domain: DomainDecks, id: deckID}
	}

	card := models.Flashcard{
		ID:       uuid.NewString(),
		Question: question,
		Answer:   answer,
	}

	deck.Cards = append(deck.Cards, card)
	deck.UpdatedAt = d.now().UnixMilli()

	if err := d.put(deck); err != nil {
		return models.Flashcard{}, err
	}

	return card, nil
}

// ReviewCard records one review outcome: the card's mastery level moves
// one step, its next review date comes from the schedule table, and the
// counters are updated. The deck timestamp is bumped so the review wins
// the next merge.
func (d *Decks) ReviewCard(deckID, cardID string, wasCorrect bool) (models.Flashcard, error) {
	deck, ok := d.Get(deckID)
	if !ok {
		return models.Flashcard{}, &notFoundError{domain: DomainDecks, id: deckID}
	}

	card := deck.Card(cardID)
	if card == nil {
		return models.Flashcard{}, &notFoundError{domain: DomainDecks, id: deckID + "/" + cardID}
	}

	now := d.now()
	newLevel, nextReview := scheduler.Advance(card.MasteryLevel, wasCorrect, now)

	card.MasteryLevel = newLevel
	card.ReviewCount++

	if wasCorrect {
		card.CorrectCount++
	} else {
		card.IncorrectCount++
	}

	reviewedAt := now.UnixMilli()
	nextAt := nextReview.UnixMilli()
	card.LastReviewedAt = &reviewedAt
	card.NextReviewAt = &nextAt

	deck.UpdatedAt = reviewedAt

	if err := d.put(deck); err != nil {
		return models.Flashcard{}, err
	}

	return *card, nil
}

// DueCards returns the cards in a deck that are eligible for review
// now, in deck order.
func (d *Decks) DueCards(deckID string) ([]models.Flashcard, error) {
	deck, ok := d.Get(deckID)
	if !ok {
		return nil, &notFoundError{domain: DomainDecks, id: deckID}
	}

	now := d.now()

	var due []models.Flashcard

	for _, card := range deck.Cards {
		if scheduler.Due(card.NextReviewAt, now) {
			due = append(due, card)
		}
	}

	return due, nil
}
