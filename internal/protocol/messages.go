package protocol

// PLACE (client -> server). Exactly one of Facing or Yaw selects the
// orientation; Rotation overrides both when set.
type PlaceRequest struct {
	Type      string   `json:"type"`
	Arena     string   `json:"arena"`
	World     string   `json:"world,omitempty"`
	Missile   string   `json:"missile,omitempty"`
	Structure string   `json:"structure,omitempty"`
	Anchor    [3]int   `json:"anchor"`
	Facing    string   `json:"facing,omitempty"`
	Yaw       *float64 `json:"yaw,omitempty"`
	Rotation  *int     `json:"rotation,omitempty"`
	Team      string   `json:"team,omitempty"`
	PlayerID  string   `json:"player_id,omitempty"`
}

type PlaceResponse struct {
	Type        string `json:"type"`
	PlacementID string `json:"placement_id,omitempty"`
	Accepted    bool   `json:"accepted"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// PLACEMENT (server -> observers).
type PlacementEvent struct {
	Type        string `json:"type"`
	PlacementID string `json:"placement_id"`
	Tick        uint64 `json:"tick"`
	Arena       string `json:"arena,omitempty"`
	World       string `json:"world"`
	Structure   string `json:"structure"`
	DisplayName string `json:"display_name,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	Origin      [3]int `json:"origin"`
	Rotation    int    `json:"rotation"`
	Facing      string `json:"facing,omitempty"`
	Color       string `json:"color,omitempty"`
	Engine      string `json:"engine"`
	Placed      int    `json:"placed"`
	Skipped     int    `json:"skipped"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// CLEANUP (server -> observers).
type CleanupEvent struct {
	Type        string `json:"type"`
	PlacementID string `json:"placement_id"`
	Tick        uint64 `json:"tick"`
	Arena       string `json:"arena,omitempty"`
	World       string `json:"world"`
	Anchor      [3]int `json:"anchor"`
	Outcome     string `json:"outcome"`
	Cleared     int    `json:"cleared"`
}
