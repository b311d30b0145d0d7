package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/mmynk/mamachef/internal/models"
)

// ErrNoMedia is returned when the model answered without an image or video.
var ErrNoMedia = errors.New("gateway: model returned no media")

// DefaultVideoPollInterval is how often a pending video operation is checked.
const DefaultVideoPollInterval = 10 * time.Second

// MediaRequest asks the model to transform a photo according to a prompt.
type MediaRequest struct {
	Model  string
	Image  *models.InlineData
	Prompt string
}

// Studio produces media from a photo: an edited image or a short video.
type Studio interface {
	EditImage(ctx context.Context, req MediaRequest) (*models.InlineData, error)
	AnimatePhoto(ctx context.Context, req MediaRequest) (*models.InlineData, error)
}

var _ Studio = (*Client)(nil)

// EditImage sends the photo and the prompt to an image model and returns the
// last image part of the reply.
func (c *Client) EditImage(ctx context.Context, req MediaRequest) (*models.InlineData, error) {
	if c.genAI == nil {
		return nil, ErrMissingCredential
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data}},
			{Text: req.Prompt},
		},
	}}
	res, err := c.genAI.Models.GenerateContent(ctx, req.Model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	var image *models.InlineData
	if len(res.Candidates) > 0 && res.Candidates[0].Content != nil {
		for _, part := range res.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				image = &models.InlineData{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}
			}
		}
	}
	if image == nil {
		return nil, ErrNoMedia
	}
	if image.MIMEType == "" {
		image.MIMEType = "image/png"
	}
	return image, nil
}

// AnimatePhoto starts a video generation from the photo and polls the
// operation until it finishes or ctx is done. The first generated video is
// downloaded and returned.
func (c *Client) AnimatePhoto(ctx context.Context, req MediaRequest) (*models.InlineData, error) {
	if c.genAI == nil {
		return nil, ErrMissingCredential
	}

	op, err := c.genAI.Models.GenerateVideos(ctx, req.Model, req.Prompt,
		&genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType},
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     "720p",
			AspectRatio:    "16:9",
		})
	if err != nil {
		return nil, classify(ctx, err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gateway: waiting for video %s: %w", op.Name, ctx.Err())
		case <-ticker.C:
		}
		op, err = c.genAI.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, classify(ctx, err)
		}
	}

	if op.Error != nil {
		return nil, operationError(op.Error)
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, ErrNoMedia
	}

	generated := op.Response.GeneratedVideos[0]
	data := generated.Video.VideoBytes
	if len(data) == 0 {
		data, err = c.genAI.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
		if err != nil {
			return nil, classify(ctx, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrNoMedia
	}

	mimeType := generated.Video.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return &models.InlineData{MIMEType: mimeType, Data: data}, nil
}

// operationError turns the error object of a finished long-running operation
// into an UpstreamError.
func operationError(opErr map[string]any) *UpstreamError {
	status := 0
	if code, ok := opErr["code"].(float64); ok {
		status = int(code)
	}
	body, err := json.Marshal(map[string]any{"error": opErr})
	if err != nil {
		body = []byte(fmt.Sprint(opErr))
	}
	return &UpstreamError{Status: status, Body: string(body)}
}
