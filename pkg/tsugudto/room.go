package tsugudto

// RoomRecord is the flat room shape the backend's /roomList endpoint renders.
type RoomRecord struct {
	Number     int     `json:"number"`
	RawMessage string  `json:"rawMessage"`
	Source     string  `json:"source"`
	UserID     string  `json:"userId"`
	Time       int64   `json:"time"`
	Avatar     *string `json:"avatar"`
	UserName   string  `json:"userName"`
}

type RoomListRequest struct {
	RoomList []RoomRecord `json:"roomList"`
}
