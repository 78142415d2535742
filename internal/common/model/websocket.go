package model

// Message is the pre-association handshake frame. The first frame on a new
// socket must carry type "auth" with the login token.
type Message struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Data  string `json:"data,omitempty"`
}
