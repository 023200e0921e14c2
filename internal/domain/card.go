package domain

import "time"

// CardContent is the immutable, catalog-owned half of a flashcard.
type CardContent struct {
	ID                 int    `json:"id" validate:"gt=0"`
	WordHiragana       string `json:"word_hiragana"`
	WordKatakana       string `json:"word_katakana"`
	WordKanji          string `json:"word_kanji"`
	WordRomaji         string `json:"word_romaji"`
	English            string `json:"english" validate:"required"`
	PartOfSpeech       string `json:"part_of_speech" validate:"oneof=noun verb adjective adverb pronoun preposition conjunction interjection particle other"`
	ExampleSentence    string `json:"example_sentence"`
	ExampleTranslation string `json:"example_translation"`
}

// SchedulingState is the mutable review state tracked for one card.
// A nil LastReviewedAt means the card has never been reviewed.
type SchedulingState struct {
	LastReviewedAt  *time.Time
	TimesReviewed   int
	EaseFactor      float64
	IntervalDays    float64
	StreakCount     int
	TotalCorrect    int
	TotalIncorrect  int
	TotalStudied    int
	CorrectStreak   int
	IncorrectStreak int
}

// NeverReviewed reports whether the card has no review on record.
func (s SchedulingState) NeverReviewed() bool {
	return s.LastReviewedAt == nil
}

// CardView joins a card's content with its scheduling state.
type CardView struct {
	CardContent
	State SchedulingState
}

// Deck groups card views for querying. It is not persisted.
type Deck struct {
	Name        string
	Description string
	CreatedAt   time.Time
	Cards       []CardView
}

// ReviewLog records a single review event for a card.
// The Grade corresponds to SM-2 answer buttons:
// 1: Again (Incorrect)
// 2: Hard
// 3: Good
// 4: Easy
type ReviewLog struct {
	CardID       int
	Timestamp    time.Time
	Grade        int
	IntervalDays float64
	EaseFactor   float64
}
