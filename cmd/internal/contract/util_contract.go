package contract

type HealthResponse struct {
	Status       string `json:"status"`
	PresenceMode string `json:"presenceMode"`
}

type StatsResponse struct {
	Connections  int    `json:"connections"`
	QueueSize    int    `json:"queueSize"`
	ActiveCalls  int    `json:"activeCalls"`
	PresenceMode string `json:"presenceMode"`
}

type OnlineStatusResponse struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}
