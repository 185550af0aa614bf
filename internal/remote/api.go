package remote

// HTTP API request/response bodies shared by the client transport and the
// server handlers. Byte slices travel base64-encoded per encoding/json.

type RegisterRequest struct {
	Login    string `json:"login"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Verifier []byte `json:"verifier"`
}

type SaltResponse struct {
	Salt []byte `json:"salt"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type BatchWriteRequest struct {
	Mutations []Mutation `json:"mutations"`
}

type PresignPutResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type PresignGetResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
