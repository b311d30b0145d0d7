package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/mmynk/mamachef/internal/api/respond"
	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
)

const maxProxyBody = 2*inline.MaxImageBytes + 1<<20

// noResponseText is returned when the model answered with no text.
const noResponseText = "No response"

// ProxyRequest is the body of POST /api/gemini. Prompt is a shorthand for a
// single user text turn when Contents is empty.
type ProxyRequest struct {
	Model             string         `json:"model,omitempty"`
	Contents          []ProxyContent `json:"contents,omitempty"`
	Prompt            string         `json:"prompt,omitempty"`
	SystemInstruction string         `json:"systemInstruction,omitempty"`
	Temperature       *float64       `json:"temperature,omitempty"`
	ResponseSchema    *genai.Schema  `json:"responseSchema,omitempty"`
}

type ProxyContent struct {
	Role  string      `json:"role"`
	Parts []ProxyPart `json:"parts"`
}

// ProxyPart is either text or base64 inline data.
type ProxyPart struct {
	Text       string     `json:"text,omitempty"`
	InlineData *ProxyBlob `json:"inlineData,omitempty"`
}

type ProxyBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type ProxyResponse struct {
	Text string `json:"text"`
}

type proxyHandler struct {
	gen                gateway.Generator
	credentialPresent  bool
	defaultModel       string
	defaultTemperature float64
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.credentialPresent {
		respond.WriteError(w, http.StatusInternalServerError, gateway.ErrMissingCredential.Error())
		return
	}

	var body ProxyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProxyBody)).Decode(&body); err != nil {
		respond.WriteBadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	req, err := h.toGatewayRequest(body)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	text, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		text = noResponseText
	}
	respond.WriteJSON(w, http.StatusOK, ProxyResponse{Text: text})
}

func (h *proxyHandler) toGatewayRequest(body ProxyRequest) (gateway.Request, error) {
	req := gateway.Request{
		Model:             body.Model,
		SystemInstruction: body.SystemInstruction,
		Temperature:       h.defaultTemperature,
		ResponseSchema:    body.ResponseSchema,
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}

	if len(body.Contents) == 0 {
		if strings.TrimSpace(body.Prompt) == "" {
			return req, errors.New("contents or prompt is required")
		}
		req.Contents = []models.Content{{
			Role:  conversation.ModelRoleUser,
			Parts: []models.Part{{Text: body.Prompt}},
		}}
		return req, nil
	}

	for i, c := range body.Contents {
		role := c.Role
		if role == "" {
			role = conversation.ModelRoleUser
		}
		if role != conversation.ModelRoleUser && role != conversation.ModelRoleModel {
			return req, fmt.Errorf("contents[%d]: unknown role %q", i, c.Role)
		}
		if len(c.Parts) == 0 {
			return req, fmt.Errorf("contents[%d]: no parts", i)
		}

		content := models.Content{Role: role}
		for j, p := range c.Parts {
			if p.InlineData == nil {
				content.Parts = append(content.Parts, models.Part{Text: p.Text})
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return req, fmt.Errorf("contents[%d].parts[%d]: invalid base64: %v", i, j, err)
			}
			content.Parts = append(content.Parts, models.Part{
				InlineData: &models.InlineData{MIMEType: p.InlineData.MIMEType, Data: data},
			})
		}
		req.Contents = append(req.Contents, content)
	}
	return req, nil
}

func writeGatewayError(w http.ResponseWriter, err error) {
	var upstream *gateway.UpstreamError
	switch {
	case errors.Is(err, gateway.ErrMissingCredential):
		respond.WriteError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &upstream):
		slog.Warn("Proxy upstream error", "status", upstream.Status)
		respond.WriteErrorDetails(w, http.StatusBadGateway, "Gemini API error", upstream.Body)
	default:
		slog.Error("Proxy request failed", "error", err)
		respond.WriteErrorDetails(w, http.StatusBadGateway, "Server error", err.Error())
	}
}
