package model

// Payout methods accepted by the operate endpoint.
const (
	PayoutFull     = "full"
	PayoutHalf     = "half"
	PayoutWithhold = "withhold"
)

// ActionResult is the response shape of the operate, transfer_money,
// transfer_share and undo endpoints. Every key is optional; present
// keys name the entities the action touched, and the client merges
// them into its snapshot one by one.
type ActionResult struct {
	Game      *Game     `json:"game,omitempty"`
	Players   []Player  `json:"players,omitempty"`
	Companies []Company `json:"companies,omitempty"`
	Shares    []Share   `json:"shares,omitempty"`
	Log       *LogEntry `json:"log,omitempty"`
}
