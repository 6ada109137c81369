package domain

// NavigationItem is one destination in the app navigation.
type NavigationItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Icon  string `json:"icon"`
}

// NavigationResponse is returned by GET /v1/navigation.
type NavigationResponse struct {
	Role     Role             `json:"role"`
	HomePath string           `json:"homePath"`
	Items    []NavigationItem `json:"items"`
}
