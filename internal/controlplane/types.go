package controlplane

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is used when the control plane does not announce server_port.
const DefaultPort = 51820

// ServerInfo is what the control plane tells a new client about the server
// side of the tunnel.
type ServerInfo struct {
	PublicKey     string `json:"public_key"`
	Port          int    `json:"port"`
	AssignedOctet int    `json:"assigned_ip_last_octet"`
}

// RegistrationRequest is posted to the register endpoint.
type RegistrationRequest struct {
	Hostname  string `json:"hostname"`
	LocalIP   string `json:"ip"`
	Interface string `json:"wg_if"`
	PublicKey string `json:"wg_public_key"`
	Config    string `json:"wg_config"`
}

// RegistrationResult is the outcome of the single registration attempt.
type RegistrationResult struct {
	Accepted           bool   `json:"accepted"`
	PeerAutoConfigured bool   `json:"peer_auto_configured"`
	Message            string `json:"message"`
	StatusCode         int    `json:"status_code,omitempty"`
}

// infoStatus is the part of the info response checked before anything else.
type infoStatus struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// infoResponse is the wire shape of the info endpoint.
type infoResponse struct {
	OK              *bool   `json:"ok"`
	Error           string  `json:"error"`
	ServerPublicKey string  `json:"server_public_key"`
	ServerPort      flexInt `json:"server_port"`
	IPLastOctet     flexInt `json:"ip_last_octet"`
}

// registerResponse is the wire shape of the register endpoint.
type registerResponse struct {
	WGConfigured bool   `json:"wg_configured"`
	Message      string `json:"message"`
	Warning      string `json:"warning"`
}

// flexInt decodes a JSON number or a numeric string. Set is false for
// absent, null, or empty-string values.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = flexInt{}
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = flexInt{}
			return nil
		}
	} else {
		raw = string(data)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = flexInt{Value: n, Set: true}
	return nil
}
