package models

import "fmt"

// Mastery level bounds. A card's mastery only moves by one step per
// review and never leaves this range.
const (
	MasteryMin = 0
	MasteryMax = 5
)

// Flashcard is a single question/answer card. Cards are owned
// exclusively by their deck; the id is unique within that deck only.
// A nil NextReviewAt means the card is due immediately.
type Flashcard struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	MasteryLevel   int    `json:"masteryLevel"`
	ReviewCount    int    `json:"reviewCount"`
	CorrectCount   int    `json:"correctCount"`
	IncorrectCount int    `json:"incorrectCount"`
	LastReviewedAt *int64 `json:"lastReviewedAt"`
	NextReviewAt   *int64 `json:"nextReviewAt"`
}

// FlashcardDeck is an ordered collection of flashcards with study
// metadata.
type FlashcardDeck struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Grade       string      `json:"grade"`
	UpdatedAt   int64       `json:"updatedAt"`
	Cards       []Flashcard `json:"cards"`
}

func (d FlashcardDeck) RecordID() string    { return d.ID }
func (d FlashcardDeck) LastModified() int64 { return d.UpdatedAt }

func (d FlashcardDeck) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("missing id")
	}

	if d.UpdatedAt <= 0 {
		return fmt.Errorf("missing updatedAt")
	}

	seen := make(map[string]struct{}, len(d.Cards))

	for i, c := range d.Cards {
		if c.ID == "" {
			return fmt.Errorf("card %d: missing id", i)
		}

		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate card id %q", c.ID)
		}

		seen[c.ID] = struct{}{}

		if c.MasteryLevel < MasteryMin || c.MasteryLevel > MasteryMax {
			return fmt.Errorf("card %q: mastery level %d out of range", c.ID, c.MasteryLevel)
		}
	}

	return nil
}

// Card returns a pointer to the card with the given id, or nil.
func (d *FlashcardDeck) Card(id string) *Flashcard {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return &d.Cards[i]
		}
	}

	return nil
}
