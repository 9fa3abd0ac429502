package gormrepo

import "time"

type botEventRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Account    string    `gorm:"column:account"`
	SessionID  string    `gorm:"column:session_id"`
	Type       string    `gorm:"column:type"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	Payload    []byte    `gorm:"column:payload;type:jsonb"`
}

func (botEventRow) TableName() string { return "bot_events" }

type sessionTallyRow struct {
	Account     string    `gorm:"column:account;primaryKey"`
	Battles     int       `gorm:"column:battles"`
	MoneyEarned int       `gorm:"column:money_earned"`
	Species     []byte    `gorm:"column:species;type:jsonb"`
	Items       []byte    `gorm:"column:items;type:jsonb"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (sessionTallyRow) TableName() string { return "session_tallies" }

type accountRow struct {
	Username     string    `gorm:"column:username;primaryKey"`
	UserID       string    `gorm:"column:user_id"`
	HashPassword string    `gorm:"column:hash_password"`
	PasswordSalt []byte    `gorm:"column:password_salt"`
	PasswordHash []byte    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (accountRow) TableName() string { return "accounts" }

type mapCacheRow struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Region    string    `gorm:"column:region"`
	Grid      []byte    `gorm:"column:grid;type:jsonb"`
	Exits     []byte    `gorm:"column:exits;type:jsonb"`
	NPCs      []byte    `gorm:"column:npcs;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (mapCacheRow) TableName() string { return "map_cache" }
