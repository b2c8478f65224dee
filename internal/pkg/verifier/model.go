package verifier

import "github.com/vreid/sweeper/internal/pkg/certifier"

type WinClaim struct {
	AccountID string
	Board     certifier.Board
	Size      int
	Token     string
}

type Result struct {
	Accepted bool `json:"accepted"`
	Advanced bool `json:"advanced"`
	Largest  int  `json:"largest_board"`
}
