package coord

import foreman "github.com/nevindra/foreman"

// Wire shapes for the coordination service HTTP API. Only the fields this
// engine consumes are declared; unknown fields are ignored by design so the
// service can evolve its payloads.

type pendingResponse struct {
	Items []foreman.Step `json:"items"`
}

type agentResponse struct {
	OK      bool                 `json:"ok"`
	Profile *foreman.AgentConfig `json:"profile"`
}

type contextResponse struct {
	OK            bool   `json:"ok"`
	ContentType   string `json:"contentType"`
	SelectedAngle string `json:"selectedAngle"`
	Briefing      string `json:"briefing"`
}

type statusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type outputRequest struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

type failRequest struct {
	ID           string `json:"id"`
	ErrorMessage string `json:"errorMessage"`
}

type thinkingRequest struct {
	ID    string `json:"id"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

type heartbeatRequest struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}
