package types

import (
	"context"
	"time"
)

type User struct {
	UserID       int64
	ChatID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ConversionRecord struct {
	ID          string
	UserID      int64
	Mode        Mode
	Outcome     string
	InputBytes  int64
	OutputBytes int64
	Duration    time.Duration
	CreatedAt   time.Time
}

type UserStore interface {
	UpsertUser(ctx context.Context, user User) error
}

// Journal records conversion attempts. Implementations must not block the reply for long.
type Journal interface {
	RecordConversion(ctx context.Context, rec ConversionRecord) error
}

type NopJournal struct{}

func (NopJournal) RecordConversion(context.Context, ConversionRecord) error { return nil }

func (NopJournal) UpsertUser(context.Context, User) error { return nil }
