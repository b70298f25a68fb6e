package model

import "time"

// AppSetting is a persisted key-value pair.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preferences holds display preferences restored at startup.
type Preferences struct {
	DarkMode bool `json:"dark_mode"`
}

// UpdatePreferencesRequest is the payload for changing display preferences.
type UpdatePreferencesRequest struct {
	DarkMode *bool `json:"dark_mode" binding:"required"`
}
