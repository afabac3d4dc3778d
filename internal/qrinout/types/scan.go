package types

type ScanRequest struct {
	GuestID   string `json:"guest_id"`
	Action    string `json:"action"`
	TokenText string `json:"token_text"`
}

type ScanResponse struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	Action      string `json:"action"`
	ServerTime  string `json:"server_time"`
	TimeTrusted bool   `json:"time_trusted"`
}

type GuestVerifyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type GuestVerifyResponse struct {
	GuestID            string   `json:"guest_id"`
	Name               string   `json:"name"`
	Timezone           string   `json:"timezone"`
	AllowedCheckpoints []string `json:"allowed_checkpoints,omitempty"`
}
