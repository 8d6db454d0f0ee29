package models

import (
	"time"
)

type Medium string

const (
	MediumFilm       Medium = "film"
	MediumAudio      Medium = "audio"
	MediumLiterature Medium = "literature"
	MediumOther      Medium = "other"
)

func (m Medium) Valid() bool {
	switch m {
	case MediumFilm, MediumAudio, MediumLiterature, MediumOther:
		return true
	}
	return false
}

type ConsumedState string

const (
	StateNotStarted ConsumedState = "not started"
	StateStarted    ConsumedState = "started"
	StateFinished   ConsumedState = "finished"
)

func (s ConsumedState) Valid() bool {
	switch s {
	case StateNotStarted, StateStarted, StateFinished:
		return true
	}
	return false
}

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string  `gorm:"size:50;unique;not null"  json:"username"`
	PasswordHash string  `gorm:"size:60;not null"         json:"-"`
	Media        []Media `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

type Media struct {
	ID            uint          `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID        uint          `gorm:"index;not null"                             json:"-"`
	Name          string        `gorm:"column:medianame;size:80"                   json:"name"`
	Medium        Medium        `gorm:"size:16;not null;default:other"             json:"medium"`
	ConsumedState ConsumedState `gorm:"size:16;not null;default:'not started'"     json:"consumed_state"`
	Description   string        `gorm:"size:500;not null;default:''"               json:"description"`
	Order         int           `gorm:"column:sort_order;not null;default:0"       json:"order"`
}

type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"              json:"id"`
	Token     string    `gorm:"size:500;unique;not null" json:"token"`
	RevokedAt time.Time `gorm:"not null"                json:"revoked_at"`
}

func (Media) TableName() string { return "media" }
