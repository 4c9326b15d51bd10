package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Game is the durable row for one game code. Channels holds the serialized
// channel map as a JSON blob; the relay treats the values as opaque.
type Game struct {
	Code       string `gorm:"primaryKey;size:6"`
	AttackerID string
	DefenderID string
	Channels   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GameRound is one durable per-round history entry.
type GameRound struct {
	ID        uint   `gorm:"primaryKey"`
	GameCode  string `gorm:"index"`
	Round     int
	Snapshot  string
	CreatedAt time.Time
}

// GameAction is one discrete user action log row.
type GameAction struct {
	ID        uint   `gorm:"primaryKey"`
	GameCode  string `gorm:"index"`
	UserID    string
	Action    string
	CreatedAt time.Time
}

// Postgres implements Store on a gorm postgres connection.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Game{}, &GameRound{}, &GameAction{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) LoadChannels(ctx context.Context, code string) (map[string]string, error) {
	var game Game
	err := p.db.WithContext(ctx).First(&game, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", code, err)
	}
	if game.Channels == "" {
		return map[string]string{}, nil
	}
	channels := map[string]string{}
	if err := json.Unmarshal([]byte(game.Channels), &channels); err != nil {
		return nil, fmt.Errorf("decode channels for %s: %w", code, err)
	}
	return channels, nil
}

func (p *Postgres) SaveChannels(ctx context.Context, code string, channels map[string]string) error {
	blob, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("encode channels for %s: %w", code, err)
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"channels", "updated_at"}),
	}).Create(&Game{Code: code, Channels: string(blob)}).Error
	if err != nil {
		return fmt.Errorf("save game %s: %w", code, err)
	}
	return nil
}

func (p *Postgres) CreateGame(ctx context.Context, code string) error {
	err := p.db.WithContext(ctx).Create(&Game{Code: code}).Error
	if err != nil {
		return fmt.Errorf("create game %s: %w", code, err)
	}
	return nil
}

func (p *Postgres) JoinGame(ctx context.Context, code, userID, role string) error {
	column := "attacker_id"
	if role == "defender" {
		column = "defender_id"
	}
	res := p.db.WithContext(ctx).Model(&Game{}).Where("code = ?", code).Update(column, userID)
	if res.Error != nil {
		return fmt.Errorf("join game %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) LeaveGame(ctx context.Context, code, userID string) error {
	err := p.db.WithContext(ctx).Model(&Game{}).Where("code = ?", code).
		Updates(map[string]any{
			"attacker_id": gorm.Expr("CASE WHEN attacker_id = ? THEN '' ELSE attacker_id END", userID),
			"defender_id": gorm.Expr("CASE WHEN defender_id = ? THEN '' ELSE defender_id END", userID),
		}).Error
	if err != nil {
		return fmt.Errorf("leave game %s: %w", code, err)
	}
	return nil
}

func (p *Postgres) AppendRound(ctx context.Context, code string, round int, snapshot string) error {
	err := p.db.WithContext(ctx).Create(&GameRound{GameCode: code, Round: round, Snapshot: snapshot}).Error
	if err != nil {
		return fmt.Errorf("append round %d for %s: %w", round, code, err)
	}
	return nil
}

func (p *Postgres) LogAction(ctx context.Context, code, userID, action string) error {
	err := p.db.WithContext(ctx).Create(&GameAction{GameCode: code, UserID: userID, Action: action}).Error
	if err != nil {
		return fmt.Errorf("log action for %s: %w", code, err)
	}
	return nil
}
