package model

import (
	"time"

	"gorm.io/datatypes"
)

// Roster

type Player struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	DiscordID   string `gorm:"unique;not null"`
	DisplayName string `gorm:"unique;not null"`
	Avatar      string
	Status      string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Wallet & ledger

type Wallet struct {
	PlayerID    int64 `gorm:"primaryKey"`
	Coins       int64
	Tickets     int64
	TotalEarned int64
	TotalSpent  int64
	UpdatedAt   time.Time
}

type CoinLog struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	PlayerID     int64
	Type         string // round_reward/ticket/adjust
	Delta        int64
	BalanceAfter int64
	RoundID      *int64
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

// Rounds

type Round struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Mode       int    // player count: 3 or 4
	Style      string // individual/team
	HandCount  int
	RecorderID int64
	Tobi       bool
	Yakitori   bool
	Overridden bool // point-sum mismatch force-submitted
	ResultJSON datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

type RoundSeat struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RoundID      int64 `gorm:"index"`
	PlayerID     *int64
	DisplayName  string
	RawPoints    int
	WinCount     int
	DealInCount  int
	Placement    int
	FinalScore   float64
	CoinReward   int64
	TicketReward int64
}

// Badges

type Badge struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"unique;not null"`
	Icon        string
	Description string
	CreatedAt   time.Time
}

type PlayerBadge struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	PlayerID  int64 `gorm:"index"`
	BadgeID   int64
	RoundID   *int64
	AwardedAt time.Time
}

// Audit

type ActivityLog struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	ActorID    int64
	Action     string // round_submit/point_sum_override/wallet_adjust/badge_award/player_ban
	DetailJSON datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}
