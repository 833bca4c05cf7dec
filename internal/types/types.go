package types

// CustomerRecord maps raw attribute names to their submitted values.
// Values may be strings, numbers, or booleans; the schema decides how each
// one is interpreted. Treated as immutable once submitted.
type CustomerRecord map[string]interface{}

// ScoreRequest represents the request structure for the score endpoint
type ScoreRequest struct {
	Customer CustomerRecord `json:"customer" binding:"required"`
}

// BatchScoreRequest represents the request structure for the batch score endpoint
type BatchScoreRequest struct {
	Customers []CustomerRecord `json:"customers" binding:"required"`
}
