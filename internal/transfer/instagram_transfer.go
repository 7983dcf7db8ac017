package transfer

// Meta graph APIs (Instagram and Threads) share these shapes.

type GraphObject struct {
	ID string `json:"id"`
}

type GraphContainerStatus struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	StatusCode   string `json:"status_code"`
	ErrorMessage string `json:"error_message"`
}

type GraphTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
