package certifier

// Board is a row-major cell layout where true marks a mine.
type Board [][]bool

type signedBoard struct {
	Board Board `json:"board"`
	Size  int   `json:"size"`
}
