package trip

// CityStop is one city and date leg of a trip.
type CityStop struct {
	City       string   `json:"city"`
	Date       string   `json:"date"`
	Activities []string `json:"activities"`
}

// ExplorerInput is the decoded single-box City Explorer input.
type ExplorerInput struct {
	City          string `json:"city"`
	Date          string `json:"date"`
	HasActivities bool   `json:"hasActivities"`
	// TripText is the input rewritten as a one-stop trip ("City1: <city> <date>" plus activities).
	TripText string `json:"tripText"`
}
