package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/auth"
	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/profile"
	"github.com/mmynk/mamachef/internal/session"
	"github.com/mmynk/mamachef/internal/storage"
)

var errUnknownAction = errors.New("unknown quick action")

// toConnectError translates domain errors into Connect codes. Gateway
// failures and reconciliation failures get distinct codes so a client can
// tell a bad model answer from a failed save.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	var upstream *gateway.UpstreamError
	var network *gateway.NetworkError
	switch {
	case errors.Is(err, gateway.ErrMissingCredential):
		return connect.CodeInternal
	case errors.As(err, &upstream), errors.As(err, &network):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded

	case errors.Is(err, nutrition.ErrMalformedPayload),
		errors.Is(err, nutrition.ErrInvalidPortion),
		errors.Is(err, nutrition.ErrInvalidNutrient),
		errors.Is(err, inline.ErrInvalidDataURL),
		errors.Is(err, inline.ErrImageTooLarge),
		errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, conversation.ErrEmptyTurn),
		errors.Is(err, errUnknownAction),
		errors.Is(err, errInvalidDate):
		return connect.CodeInvalidArgument
	case errors.Is(err, nutrition.ErrEmptySelection),
		errors.Is(err, nutrition.ErrUnconfirmedItems):
		return connect.CodeFailedPrecondition
	case errors.Is(err, nutrition.ErrItemNotFound),
		errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound

	case errors.Is(err, session.ErrBusy):
		return connect.CodeAborted
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return connect.CodeUnauthenticated
	default:
		return connect.CodeInternal
	}
}
