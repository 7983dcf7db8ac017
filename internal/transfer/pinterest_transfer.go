package transfer

type PinterestBoard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PinterestBoardList struct {
	Items    []PinterestBoard `json:"items"`
	Bookmark *string          `json:"bookmark"`
}

type PinterestMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type PinterestPinRequest struct {
	BoardID     string               `json:"board_id"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Link        string               `json:"link,omitempty"`
	AltText     string               `json:"alt_text,omitempty"`
	MediaSource PinterestMediaSource `json:"media_source"`
}

type PinterestPin struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
}
