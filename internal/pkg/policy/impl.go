package policy

const (
	MinBoardSize = 9

	// MineDensity is the share of cells holding a mine, in percent.
	MineDensity = 20
)

type Offer struct {
	Size  int `json:"next_size"`
	Mines int `json:"mine_count"`
}

func NextExpected(largest int) int {
	return max(MinBoardSize, largest+1)
}

func MineCount(size int) int {
	return max(1, size*size*MineDensity/100)
}

func NewOffer(largest int) Offer {
	size := NextExpected(largest)

	return Offer{
		Size:  size,
		Mines: MineCount(size),
	}
}
