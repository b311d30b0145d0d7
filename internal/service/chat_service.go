package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/auth"
	"github.com/mmynk/mamachef/internal/contract"
	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/profile"
	"github.com/mmynk/mamachef/internal/session"
)

// ErrorReplyText replaces the assistant reply when the model call fails.
const ErrorReplyText = "Извините, произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте еще раз."

// ChatService implements the Connect ChatService.
type ChatService struct {
	sessions *session.Manager
	jwt      *auth.JWTManager
	gen      gateway.Generator
	studio   gateway.Studio
	opts     Options
}

// NewChatService creates a ChatService. studio serves photo edits and videos.
func NewChatService(sessions *session.Manager, jwtManager *auth.JWTManager, gen gateway.Generator, studio gateway.Studio, opts Options) *ChatService {
	return &ChatService{sessions: sessions, jwt: jwtManager, gen: gen, studio: studio, opts: opts}
}

// currentSession resolves the session installed by the auth interceptor.
func currentSession(ctx context.Context, sessions *session.Manager) (*session.Session, error) {
	id := middleware.GetSessionID(ctx)
	if id == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	sess, err := sessions.Get(id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return sess, nil
}

// StartSession creates a session and returns its token and greeting.
func (s *ChatService) StartSession(ctx context.Context, req *connect.Request[StartSessionRequest]) (*connect.Response[StartSessionResponse], error) {
	sess := s.sessions.Create()
	token, err := s.jwt.Generate(sess.ID)
	if err != nil {
		slog.Error("StartSession: failed to issue token", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&StartSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		Profile:   sess.Profile(),
		Turns:     turnsFromModel(sess.Conversation.All()),
	}), nil
}

// SendMessage appends a user turn, asks the model and appends its reply.
func (s *ChatService) SendMessage(ctx context.Context, req *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	image, err := inline.DecodeOptional(req.Msg.Image)
	if err != nil {
		return nil, toConnectError(err)
	}
	turn := models.Turn{Role: models.RoleUser, Text: strings.TrimSpace(req.Msg.Text), Image: image}
	if turn.Text == "" && turn.Image == nil {
		return nil, toConnectError(conversation.ErrEmptyTurn)
	}

	resp, err := s.exchange(ctx, sess, turn)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// QuickAction sends one of the canned prompts.
func (s *ChatService) QuickAction(ctx context.Context, req *connect.Request[QuickActionRequest]) (*connect.Response[SendMessageResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	prompt, ok := conversation.QuickActions[req.Msg.Action]
	if !ok {
		return nil, toConnectError(fmt.Errorf("%w: %q", errUnknownAction, req.Msg.Action))
	}

	resp, err := s.exchange(ctx, sess, models.Turn{Role: models.RoleUser, Text: prompt})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// exchange runs one user/assistant round trip. Model failures never fail the
// RPC: the fallback reply is appended and the error is reported in the body.
func (s *ChatService) exchange(ctx context.Context, sess *session.Session, pending models.Turn) (*SendMessageResponse, error) {
	if err := sess.TryBegin(session.StreamChat); err != nil {
		return nil, toConnectError(err)
	}
	defer sess.End(session.StreamChat)

	previous := sess.Conversation.Windowed(s.opts.HistoryWindow)
	contents, err := conversation.History(previous, pending)
	if err != nil {
		return nil, toConnectError(err)
	}
	user := sess.Conversation.Append(pending)

	text, err := generate(ctx, s.gen, gateway.Request{
		Model:             s.opts.ChatModel,
		Contents:          contents,
		SystemInstruction: profile.SystemPrompt(sess.Profile()),
		Temperature:       s.opts.Temperature,
	}, s.opts)
	if err != nil {
		slog.Error("SendMessage: model call failed", "session_id", sess.ID, "error", err)
		reply := sess.Conversation.Append(models.Turn{Role: models.RoleAssistant, Text: ErrorReplyText})
		return &SendMessageResponse{
			User:  turnFromModel(user),
			Reply: turnFromModel(reply),
			Error: err.Error(),
		}, nil
	}

	parsed := contract.Parse(text)
	reply := sess.Conversation.Append(models.Turn{
		Role:              models.RoleAssistant,
		Text:              parsed.Display(),
		IsShoppingList:    parsed.ShoppingListReady,
		NeedsSubscription: parsed.NeedsSubscription,
	})
	slog.Debug("Reply appended",
		"session_id", sess.ID,
		"shopping_list", parsed.ShoppingListReady,
		"needs_subscription", parsed.NeedsSubscription,
		"json_blocks", len(parsed.Blocks),
	)

	return &SendMessageResponse{
		User:     turnFromModel(user),
		Reply:    turnFromModel(reply),
		Insights: parsed.Insights,
	}, nil
}

// GetConversation returns the full transcript and the profile.
func (s *ChatService) GetConversation(ctx context.Context, req *connect.Request[GetConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetConversationResponse{
		Profile: sess.Profile(),
		Turns:   turnsFromModel(sess.Conversation.All()),
	}), nil
}

// UpdateProfile applies a partial profile change.
func (s *ChatService) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[ProfileResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	p, err := sess.UpdateProfile(func(p models.Profile) (models.Profile, error) {
		return profile.Apply(p, *req.Msg)
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Profile updated",
		"session_id", sess.ID,
		"age_bracket", p.AgeBracket,
		"is_sick", p.IsSick,
		"subscription", p.Subscription,
	)
	return connect.NewResponse(&ProfileResponse{Profile: p}), nil
}

// Subscribe activates the subscription and appends the confirmation turn.
func (s *ChatService) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.Response[SubscribeResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	p, _ := sess.UpdateProfile(func(p models.Profile) (models.Profile, error) {
		return profile.Subscribe(p), nil
	})
	reply := sess.Conversation.Append(models.Turn{Role: models.RoleAssistant, Text: profile.SubscribedMessage})
	slog.Info("Subscription activated", "session_id", sess.ID)

	return connect.NewResponse(&SubscribeResponse{
		Profile: p,
		Reply:   turnFromModel(reply),
	}), nil
}
