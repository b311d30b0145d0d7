package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/session"
)

// mediaAction describes the turns around one Studio call.
type mediaAction struct {
	name          string
	defaultPrompt string
	userPrefix    string
	doneText      string
	failText      string
}

var (
	editImageAction = mediaAction{
		name:          "edit_image",
		defaultPrompt: "Добавь ретро фильтр",
		userPrefix:    "Измени фото: ",
		doneText:      "Вот измененное фото:",
		failText:      "Произошла ошибка при редактировании фото.",
	}
	animatePhotoAction = mediaAction{
		name:          "animate_photo",
		defaultPrompt: "Красивая анимация еды",
		userPrefix:    "Оживи это фото: ",
		doneText:      "Вот ваше видео!",
		failText:      "Произошла ошибка при генерации видео.",
	}
)

// EditImage asks the image model to change a photo and appends the edited
// photo as the assistant reply.
func (s *ChatService) EditImage(ctx context.Context, req *connect.Request[MediaRequest]) (*connect.Response[SendMessageResponse], error) {
	resp, err := s.media(ctx, req.Msg, editImageAction, s.opts.ImageModel, s.opts.Timeout, s.studio.EditImage,
		func(turn *models.Turn, media *models.InlineData) { turn.Image = media })
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// AnimatePhoto turns a photo into a short video and appends it as the
// assistant reply.
func (s *ChatService) AnimatePhoto(ctx context.Context, req *connect.Request[MediaRequest]) (*connect.Response[SendMessageResponse], error) {
	resp, err := s.media(ctx, req.Msg, animatePhotoAction, s.opts.VideoModel, s.opts.VideoTimeout, s.studio.AnimatePhoto,
		func(turn *models.Turn, media *models.InlineData) { turn.Video = media })
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// media runs one Studio round trip. Like exchange, model failures append a
// fallback reply instead of failing the RPC.
func (s *ChatService) media(
	ctx context.Context,
	msg *MediaRequest,
	action mediaAction,
	model string,
	timeout time.Duration,
	call func(context.Context, gateway.MediaRequest) (*models.InlineData, error),
	attach func(*models.Turn, *models.InlineData),
) (*SendMessageResponse, error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	image, err := inline.Decode(msg.Image)
	if err != nil {
		return nil, toConnectError(err)
	}
	prompt := strings.TrimSpace(msg.Prompt)
	if prompt == "" {
		prompt = action.defaultPrompt
	}

	if err := sess.TryBegin(session.StreamChat); err != nil {
		return nil, toConnectError(err)
	}
	defer sess.End(session.StreamChat)

	user := sess.Conversation.Append(models.Turn{
		Role:  models.RoleUser,
		Text:  action.userPrefix + prompt,
		Image: image,
	})

	media, err := withRetry(ctx, s.opts, timeout, model, func(ctx context.Context) (*models.InlineData, error) {
		return call(ctx, gateway.MediaRequest{Model: model, Image: image, Prompt: prompt})
	})
	if err != nil {
		slog.Error("Media request failed", "session_id", sess.ID, "action", action.name, "model", model, "error", err)
		reply := sess.Conversation.Append(models.Turn{Role: models.RoleAssistant, Text: action.failText})
		return &SendMessageResponse{
			User:  turnFromModel(user),
			Reply: turnFromModel(reply),
			Error: fmt.Sprintf("%s: %v", action.name, err),
		}, nil
	}

	turn := models.Turn{Role: models.RoleAssistant, Text: action.doneText}
	attach(&turn, media)
	reply := sess.Conversation.Append(turn)
	return &SendMessageResponse{
		User:  turnFromModel(user),
		Reply: turnFromModel(reply),
	}, nil
}
