package model

import "lemon-sso/pkg/apierror"

// APIResponse is the envelope of every API response. Successful responses
// carry Data, failed ones carry Reason.
type APIResponse struct {
	Meta   Meta `json:"meta"`
	Data   any  `json:"data,omitempty"`
	Reason any  `json:"reason,omitempty"`
}

type Meta struct {
	Error      bool   `json:"error"`
	Version    string `json:"version,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	IsCritical *bool  `json:"is_critical,omitempty"`
}

type OperationExit struct {
	Operation bool `json:"operation"`
}

type EchoResponse struct {
	Message string `json:"message"`
	Origin  string `json:"origin"`
}

const (
	SuccessCode    = "OK"
	SuccessMessage = "Operation Done"
)

func SuccessResponse(version string, data any) APIResponse {
	return APIResponse{
		Meta: Meta{Version: version, Code: SuccessCode, Message: SuccessMessage},
		Data: data,
	}
}

func ErrorResponse(version string, e *apierror.APIError) APIResponse {
	critical := e.Critical
	return APIResponse{
		Meta: Meta{
			Error:      true,
			Version:    version,
			Code:       e.Code,
			Message:    e.Message,
			IsCritical: &critical,
		},
		Reason: e.Reason,
	}
}
