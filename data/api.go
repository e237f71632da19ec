package data

// StandardResponse is the standard response to any request
type StandardResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ProfileResponse is the envelope every profile endpoint returns.
type ProfileResponse struct {
	Success  bool     `json:"success"`
	Username string   `json:"username"`
	Data     *Profile `json:"data"`
}

// ErrorResponse mirrors the error body shape of the legacy service.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Auth is an authentication response.
type Auth struct {
	Token string `json:"token"`
}

// CacheStats summarizes the profile cache for the admin API.
type CacheStats struct {
	Profiles int `json:"profiles"`
	Fresh    int `json:"fresh"`
	Expired  int `json:"expired"`
	Jobs     int `json:"jobs"`
}

// WorkerStatus is the health report a scrape worker publishes
// periodically and the admin API aggregates.
type WorkerStatus struct {
	Name            string  `json:"name"`
	BrowserVersion  string  `json:"browserVersion,omitempty"`
	DevtoolsURL     string  `json:"devtoolsUrl,omitempty"`
	Scrapes         int64   `json:"scrapes"`
	Failures        int64   `json:"failures"`
	ConsecFailures  int     `json:"consecFailures"`
	BrowserRestarts int     `json:"browserRestarts"`
	CPUPercent      float64 `json:"cpuPercent"`
	MemPercent      float64 `json:"memPercent"`
	UptimeSec       int64   `json:"uptimeSec"`
}

// Status is the service-wide status report.
type Status struct {
	Version   string         `json:"version"`
	StartedAt string         `json:"startedAt"`
	UptimeSec int64          `json:"uptimeSec"`
	Cache     CacheStats     `json:"cache"`
	Workers   []WorkerStatus `json:"workers"`
}

// AdminReply answers the store admin operations. Success and Error are
// always set; the remaining fields depend on the operation.
type AdminReply struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Removed int64          `json:"removed,omitempty"`
	Stats   *CacheStats    `json:"stats,omitempty"`
	Workers []WorkerStatus `json:"workers,omitempty"`
	Status  *Status        `json:"status,omitempty"`
}
