package types

type DisplayLoginRequest struct {
	CheckpointID string `json:"checkpoint_id"`
	Password     string `json:"password"`
}

type DisplayLoginResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresAt    string `json:"expires_at"`
}

// DisplayStateResponse is what a display device renders. Outside operating
// hours the token is withheld and Open is false.
type DisplayStateResponse struct {
	CheckpointID string `json:"checkpoint_id"`
	Name         string `json:"name"`
	Open         bool   `json:"open"`
	HoursMessage string `json:"hours_message,omitempty"`
	Mode         string `json:"mode,omitempty"`
	TokenText    string `json:"token_text,omitempty"`
	Sequence     int64  `json:"sequence,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`

	// Countdown is MM:SS until the next rotation; renewing mode only.
	Countdown string `json:"countdown,omitempty"`
}

type TimeStatusResponse struct {
	CurrentTime string `json:"current_time"`
	Timezone    string `json:"timezone"`
	Trusted     bool   `json:"trusted"`
}
