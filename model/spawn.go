package model

import (
	"time"

	"gorm.io/gorm"
)

// SpawnPoint is a persisted spawn group: up to MaxCount agents of one
// archetype kept alive around (X, Z).
type SpawnPoint struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Room           string    `gorm:"index:idx_spawn_room;size:64;not null" json:"room"`
	Archetype      string    `gorm:"size:64;not null" json:"archetype"`
	X              float64   `json:"x"`
	Z              float64   `json:"z"`
	MaxCount       int       `gorm:"default:1" json:"max_count"`
	Radius         float64   `json:"radius"`
	RespawnSeconds float64   `json:"respawn_seconds"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SeedSpawnPoints inserts points when the table is empty. It reports how
// many rows were written.
func SeedSpawnPoints(db *gorm.DB, points []SpawnPoint) (int, error) {
	var count int64
	if err := db.Model(&SpawnPoint{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 || len(points) == 0 {
		return 0, nil
	}
	if err := db.Create(&points).Error; err != nil {
		return 0, err
	}
	return len(points), nil
}

// LoadSpawnPoints returns the spawn points of room in insertion order.
func LoadSpawnPoints(db *gorm.DB, room string) ([]SpawnPoint, error) {
	var points []SpawnPoint
	err := db.Where("room = ?", room).Order("id").Find(&points).Error
	return points, err
}
