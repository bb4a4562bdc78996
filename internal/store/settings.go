package store

import "encoding/json"

// Settings are user preferences stored in the master document.
type Settings struct {
	LaunchAtLogin      bool `json:"launchAtLogin"`
	StartMinimized     bool `json:"startMinimized"`
	AutoSync           bool `json:"autoSync"`
	SyncDelay          int  `json:"syncDelay"`
	NotifyExternal     bool `json:"notifyExternal"`
	BackupRetention    int  `json:"backupRetention"`
	SyncNotifications  bool `json:"syncNotifications"`
	ErrorNotifications bool `json:"errorNotifications"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		AutoSync:           true,
		SyncDelay:          5,
		NotifyExternal:     true,
		BackupRetention:    30,
		SyncNotifications:  true,
		ErrorNotifications: true,
	}
}

// UnmarshalJSON fills fields missing from data with their defaults.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type alias Settings
	a := alias(DefaultSettings())
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Settings(a)
	return nil
}
