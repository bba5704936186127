package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// DirectiveHandler accepts voice-assistant directives and routes them through
// the dispatch engine. Each directive names an interface operation; the
// response is an event envelope echoing the request correlation fields.
type DirectiveHandler struct {
	gw     *gateway.Gateway
	logger *logger.Logger
}

// NewDirectiveHandler creates a directive handler over the gateway context
func NewDirectiveHandler(gw *gateway.Gateway, log *logger.Logger) *DirectiveHandler {
	return &DirectiveHandler{
		gw:     gw,
		logger: log,
	}
}

// DirectiveRequest is the inbound directive envelope
type DirectiveRequest struct {
	Directive Directive `json:"directive"`
}

// Directive carries one smart-home command
type Directive struct {
	Header   DirectiveHeader        `json:"header"`
	Endpoint DirectiveEndpoint      `json:"endpoint"`
	Payload  map[string]interface{} `json:"payload"`
}

// DirectiveHeader identifies the directive and its correlation fields
type DirectiveHeader struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	CorrelationToken string `json:"correlationToken,omitempty"`
	PayloadVersion   string `json:"payloadVersion,omitempty"`
}

// DirectiveEndpoint names the target device
type DirectiveEndpoint struct {
	EndpointID string `json:"endpointId"`
}

// EventResponse is the outbound event envelope
type EventResponse struct {
	Event Event `json:"event"`
}

// Event mirrors the directive structure in responses
type Event struct {
	Header   DirectiveHeader        `json:"header"`
	Endpoint DirectiveEndpoint      `json:"endpoint"`
	Payload  map[string]interface{} `json:"payload"`
}

// Handle handles POST /directive
func (h *DirectiveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req DirectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid directive body", http.StatusBadRequest)
		return
	}

	header := req.Directive.Header
	if header.Name == "" {
		writeError(w, "directive header requires a name", http.StatusBadRequest)
		return
	}

	log := h.logger.DirectiveLogger(header.Namespace, header.Name)

	params := gateway.Params{}
	for k, v := range req.Directive.Payload {
		params[k] = v
	}
	if req.Directive.Endpoint.EndpointID != "" {
		params["endpoint_id"] = req.Directive.Endpoint.EndpointID
	}

	result, err := h.gw.Dispatch(gateway.InterfaceAlexa, header.Name, params)
	if err != nil {
		log.WithError(err).Warn("Directive dispatch failed")
		h.writeErrorEvent(w, req.Directive, err)
		return
	}

	log.Info("Directive handled")
	payload := map[string]interface{}{}
	if result != nil {
		payload["result"] = result
	}
	writeJSON(w, http.StatusOK, EventResponse{
		Event: Event{
			Header: DirectiveHeader{
				Namespace:        "Alexa",
				Name:             "Response",
				MessageID:        header.MessageID,
				CorrelationToken: header.CorrelationToken,
				PayloadVersion:   header.PayloadVersion,
			},
			Endpoint: req.Directive.Endpoint,
			Payload:  payload,
		},
	})
}

// writeErrorEvent maps a dispatch error onto an ErrorResponse event with the
// appropriate HTTP status
func (h *DirectiveHandler) writeErrorEvent(w http.ResponseWriter, directive Directive, err error) {
	status := errors.GetHTTPStatusCode(err)
	payload := map[string]interface{}{
		"type":    string(errors.GetErrorCode(err)),
		"message": err.Error(),
	}
	writeJSON(w, status, EventResponse{
		Event: Event{
			Header: DirectiveHeader{
				Namespace:        "Alexa",
				Name:             "ErrorResponse",
				MessageID:        directive.Header.MessageID,
				CorrelationToken: directive.Header.CorrelationToken,
				PayloadVersion:   directive.Header.PayloadVersion,
			},
			Endpoint: directive.Endpoint,
			Payload:  payload,
		},
	})
}
