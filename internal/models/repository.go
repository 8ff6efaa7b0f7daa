package models

import "time"

// * RepositoryMetrics is one upstream search result item
type RepositoryMetrics struct {
	Name      string
	FullName  string
	Stars     int
	Forks     int
	UpdatedAt *time.Time
	Language  string
	URL       string
}

// * SearchPage is one page of upstream search results. TotalCount is what
// * upstream reports for the whole query, not the size of Items.
type SearchPage struct {
	TotalCount int
	Items      []RepositoryMetrics
}

// * EmptyPage is the degraded result of a failed or short-circuited fetch
func EmptyPage() SearchPage {
	return SearchPage{TotalCount: 0, Items: []RepositoryMetrics{}}
}

type RankedRepository struct {
	FullName        string  `json:"fullName"`
	Stars           int     `json:"stars"`
	Forks           int     `json:"forks"`
	Language        string  `json:"language"`
	PopularityScore float64 `json:"popularityScore"`
	URL             string  `json:"url"`
}

type PopularRepositoriesResponse struct {
	Count int                `json:"count"`
	Items []RankedRepository `json:"items"`
}

type WarmupRequest struct {
	Since    string `json:"since"`
	Language string `json:"language"`
}
