package game

import "github.com/vreid/sweeper/internal/pkg/certifier"

type GameResponse struct {
	NextSize     int `json:"next_size"`
	MineCount    int `json:"mine_count"`
	LargestBoard int `json:"largest_board"`
}

type SignBoardRequest struct {
	Board certifier.Board `json:"board" validate:"required"`
	Size  int             `json:"size" validate:"required,min=1"`
}

type SignBoardResponse struct {
	Token string `json:"token"`
}

type WinRequest struct {
	Board certifier.Board `json:"board" validate:"required"`
	Size  int             `json:"size" validate:"required,min=1"`
	Token string          `json:"token" validate:"required"`
}
