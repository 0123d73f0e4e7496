package models

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionBooked   SessionStatus = "booked"
	SessionCanceled SessionStatus = "canceled"
)

type Session struct {
	ID              string        `db:"id"`
	ClientID        string        `db:"client_id"`
	UserID          string        `db:"user_id"`
	SessionTypeID   string        `db:"session_type_id"`
	StartAt         time.Time     `db:"start_at"`
	EndAt           time.Time     `db:"end_at"`
	LocationText    string        `db:"location_text"`
	SpecificAddress string        `db:"specific_address"`
	Latitude        *float64      `db:"latitude"`
	Longitude       *float64      `db:"longitude"`
	Status          SessionStatus `db:"status"`
	Notes           string        `db:"notes"`
	CreatedAt       time.Time     `db:"created_at"`
}

// Point returns the stored coordinates, if both are set.
func (s *Session) Point() *GeoPoint {
	if s.Latitude == nil || s.Longitude == nil {
		return nil
	}
	return &GeoPoint{Lat: *s.Latitude, Lng: *s.Longitude}
}

// Address is the text used for geocoding the session location.
func (s *Session) Address() string {
	if s.LocationText != "" {
		return s.LocationText
	}
	return s.SpecificAddress
}

type SessionType struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	DurationMinutes int    `db:"duration_minutes"`
	Active          bool   `db:"active"`
}

// AvailabilityRule is one stored version of an owner's weekly schedule.
// Rule keeps the raw JSON so that malformed rows can be evaluated as "no rule".
type AvailabilityRule struct {
	ID        string          `db:"id"`
	OwnerID   string          `db:"owner_id"`
	Rule      json.RawMessage `db:"rule"`
	ValidFrom *time.Time      `db:"valid_from"`
	ValidTo   *time.Time      `db:"valid_to"`
	CreatedAt time.Time       `db:"created_at"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BookingItem is a candidate session that has not been persisted yet.
type BookingItem struct {
	Start           time.Time
	End             time.Time
	LocationText    string
	SpecificAddress string
	Latitude        *float64
	Longitude       *float64
}

func (b *BookingItem) Point() *GeoPoint {
	if b.Latitude == nil || b.Longitude == nil {
		return nil
	}
	return &GeoPoint{Lat: *b.Latitude, Lng: *b.Longitude}
}

func (b *BookingItem) Address() string {
	if b.LocationText != "" {
		return b.LocationText
	}
	return b.SpecificAddress
}
