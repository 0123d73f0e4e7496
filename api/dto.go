package api

import "time"

type BookingItem struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	LocationText    string   `json:"location_text"`
	SpecificAddress string   `json:"specific_address,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

type BatchBookRequest struct {
	ClientID      string        `json:"clientId"`
	UserID        string        `json:"userId"`
	Items         []BookingItem `json:"items"`
	SessionTypeID string        `json:"sessionTypeId"`
	Message       string        `json:"message,omitempty"`
}

type EarliestRequest struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId,omitempty"`
	DateISO  string `json:"dateISO"`
	Address  string `json:"address"`
}

type SessionResponse struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	UserID          string    `json:"user_id"`
	SessionTypeID   string    `json:"session_type_id"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	LocationText    string    `json:"location_text"`
	SpecificAddress string    `json:"specific_address,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
}

type SessionTypeResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

type AvailabilityWindow struct {
	Dow   int    `json:"dow"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type AvailabilityRequest struct {
	AdminUserID      string               `json:"adminUserId"`
	AvailabilityRule []AvailabilityWindow `json:"availability_rule"`
	ValidFrom        *string              `json:"valid_from,omitempty"`
	ValidTo          *string              `json:"valid_to,omitempty"`
}

type AvailabilityResponse struct {
	ID               string               `json:"id"`
	AdminUserID      string               `json:"adminUserId"`
	AvailabilityRule []AvailabilityWindow `json:"availability_rule"`
	ValidFrom        *string              `json:"valid_from,omitempty"`
	ValidTo          *string              `json:"valid_to,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}
