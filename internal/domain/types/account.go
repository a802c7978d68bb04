package types

// AccountProfile identifies a boxchat account on a specific relay server and
// records how far its inbox has been read.
type AccountProfile struct {
	ServerURL string    `json:"server_url"`
	Username  Username  `json:"username"`
	Cursor    MessageID `json:"cursor"`
}
