package models

// Course is the catalogue entry an offering runs.
type Course struct {
	ID      int64  `json:"id" db:"id"`
	Code    string `json:"code" db:"code"`
	Name    string `json:"name" db:"name"`
	Credits int    `json:"credits" db:"credits"`
}
