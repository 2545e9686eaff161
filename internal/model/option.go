package model

import (
	"strings"
	"time"
)

// Option is one answer choice for a question. TextKey is the normalized
// form of Text and is unique per question, so case-insensitive duplicates
// collapse onto one document. VotesCount is only ever mutated through the
// store's $inc primitive. Seq fixes the insertion order for tally
// tie-breaks; BSON datetimes only carry millisecond precision, so
// CreatedAt alone cannot.
type Option struct {
	ID         string    `json:"id" bson:"_id"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	Text       string    `json:"text" bson:"text"`
	TextKey    string    `json:"-" bson:"textKey"`
	VotesCount int       `json:"votesCount" bson:"votesCount"`
	Seq        int64     `json:"-" bson:"seq"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// NormalizeOptionText produces the duplicate-detection key for an option
// text: trimmed and lower-cased.
func NormalizeOptionText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Tally is the live view snapshot pushed to clients and served on refetch.
// Options are sorted by votes descending, ties in insertion order.
type Tally struct {
	QuestionID string   `json:"questionId"`
	Options    []Option `json:"options"`
	TotalVotes int      `json:"totalVotes"`
}
