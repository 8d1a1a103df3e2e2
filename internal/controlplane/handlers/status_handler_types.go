package handlers

// StatusResponse represents the health status of the service.
type StatusResponse struct {
	Status    string         `json:"status"`    // health status ("ok").
	Timestamp string         `json:"ts"`        // timestamp when health check was performed.
	Version   string         `json:"version"`   // version of the daemon.
	Revision  string         `json:"revision"`  // revision of the daemon.
	BuildDate string         `json:"buildDate"` // build date of the daemon.
	Folders   int            `json:"folders"`   // number of tracked folders.
	States    map[string]int `json:"states"`    // tracked folders per state.
}
