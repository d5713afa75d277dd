// Package grading holds the grade analytics and publication engine.
//
// Everything in this package works on plain values supplied by the caller:
// Summarize reduces the score records of one course offering to an
// OfferingSummary, the anomaly checks flag offerings and individual records
// that deserve a review before students can see them, and Publisher drives the
// one-way Unpublished -> Published transition through a Repository.
//
// The package never talks to a database or renders anything. Persistence is
// reached only through the Repository interface, which the Publisher receives
// at construction time.
package grading
