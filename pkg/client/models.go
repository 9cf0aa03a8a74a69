package client

// SearchResponse is the body of GET /vacancies.
type SearchResponse struct {
	Items   []SearchItem `json:"items"`
	Found   int          `json:"found"`
	Pages   int          `json:"pages"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}

// SearchItem is one search hit. Only the fields the collector reads are decoded.
type SearchItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VacancyDetail is the body of GET /vacancies/{id}.
type VacancyDetail struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeySkills []KeySkill `json:"key_skills"`
}

// KeySkill is one entry of the key_skills array.
type KeySkill struct {
	Name string `json:"name"`
}
