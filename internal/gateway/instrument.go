package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/mamachef/internal/metrics"
	"github.com/mmynk/mamachef/internal/models"
)

// Outcome maps a gateway error to a metrics label.
func Outcome(err error) string {
	var upstream *UpstreamError
	var network *NetworkError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrMissingCredential):
		return metrics.OutcomeConfig
	case errors.Is(err, ErrNoMedia):
		return metrics.OutcomeEmptyReply
	case errors.As(err, &upstream):
		return metrics.OutcomeUpstream
	case errors.As(err, &network):
		return metrics.OutcomeNetwork
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeNetwork
	}
}

type instrumented struct {
	next Generator
}

// Instrument wraps g with latency metrics and a log line per call.
func Instrument(g Generator) Generator {
	return instrumented{next: g}
}

func (i instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := i.next.Generate(ctx, req)
	took := time.Since(start)

	outcome := Outcome(err)
	metrics.ObserveGateway(req.Model, outcome, took)
	if err != nil {
		slog.Warn("Model call failed",
			"model", req.Model,
			"outcome", outcome,
			"duration_ms", took.Milliseconds(),
			"error", err,
		)
		return "", err
	}
	slog.Debug("Model call finished",
		"model", req.Model,
		"contents", len(req.Contents),
		"reply_len", len(text),
		"duration_ms", took.Milliseconds(),
	)
	return text, nil
}

type instrumentedStudio struct {
	next Studio
}

// InstrumentStudio wraps s the same way Instrument wraps a Generator.
func InstrumentStudio(s Studio) Studio {
	return instrumentedStudio{next: s}
}

func (i instrumentedStudio) EditImage(ctx context.Context, req MediaRequest) (*models.InlineData, error) {
	return observeMedia(ctx, "edit_image", req, i.next.EditImage)
}

func (i instrumentedStudio) AnimatePhoto(ctx context.Context, req MediaRequest) (*models.InlineData, error) {
	return observeMedia(ctx, "animate_photo", req, i.next.AnimatePhoto)
}

func observeMedia(ctx context.Context, kind string, req MediaRequest, call func(context.Context, MediaRequest) (*models.InlineData, error)) (*models.InlineData, error) {
	start := time.Now()
	media, err := call(ctx, req)
	took := time.Since(start)

	outcome := Outcome(err)
	metrics.ObserveGateway(req.Model, outcome, took)
	if err != nil {
		slog.Warn("Media call failed",
			"kind", kind,
			"model", req.Model,
			"outcome", outcome,
			"duration_ms", took.Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	slog.Info("Media call finished",
		"kind", kind,
		"model", req.Model,
		"mime_type", media.MIMEType,
		"bytes", len(media.Data),
		"duration_ms", took.Milliseconds(),
	)
	return media, nil
}
