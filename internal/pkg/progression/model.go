package progression

type Account struct {
	ID           string `json:"id"`
	Identity     string `json:"identity"`
	LargestBoard int    `json:"largest_board"`
}

type Entry struct {
	Identity     string `json:"identity"`
	LargestBoard int    `json:"largest_board"`
}
