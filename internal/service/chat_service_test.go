package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/profile"
	"github.com/mmynk/mamachef/internal/session"
)

func TestStartSession(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.chat.StartSession(context.Background(), connect.NewRequest(&StartSessionRequest{}))
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if resp.Msg.SessionID == "" || resp.Msg.Token == "" {
		t.Fatalf("expected session id and token, got %+v", resp.Msg)
	}
	if resp.Msg.Profile != profile.Default() {
		t.Errorf("profile = %+v, want default", resp.Msg.Profile)
	}
	if len(resp.Msg.Turns) != 1 || resp.Msg.Turns[0].Text != conversation.Greeting {
		t.Errorf("expected greeting turn, got %+v", resp.Msg.Turns)
	}
}

func TestSendMessage(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	env.gen.queue("Список готов [SHOPPING_LIST_READY]\n```json\n{\"mode\":\"NORMAL\"}\n```", nil)

	resp, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "Составь список покупок"}, token))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	reply := resp.Msg.Reply
	if reply.Text != "Список готов" || !reply.IsShoppingList || reply.NeedsSubscription {
		t.Errorf("unexpected reply %+v", reply)
	}
	if resp.Msg.Insights == nil || resp.Msg.Insights.Mode != "NORMAL" {
		t.Errorf("expected insights with mode NORMAL, got %+v", resp.Msg.Insights)
	}
	if resp.Msg.Error != "" {
		t.Errorf("unexpected error field %q", resp.Msg.Error)
	}

	calls := env.gen.calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(calls))
	}
	req := calls[0]
	if req.Model != "gemini-2.5-flash" || req.Temperature != 0.7 {
		t.Errorf("unexpected request settings: model=%s temperature=%v", req.Model, req.Temperature)
	}
	if len(req.Contents) != 2 || req.Contents[0].Role != "model" || req.Contents[1].Role != "user" {
		t.Fatalf("unexpected contents %+v", req.Contents)
	}
	if !strings.Contains(req.SystemInstruction, "Возраст: 1-2 лет") {
		t.Errorf("system instruction does not carry the profile")
	}

	conv, err := env.chat.GetConversation(context.Background(), authed(&GetConversationRequest{}, token))
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(conv.Msg.Turns) != 3 {
		t.Errorf("expected 3 turns, got %d", len(conv.Msg.Turns))
	}
}

func TestSendMessageImageOnly(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	env.gen.queue("Это каша.", nil)

	resp, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Image: testImage()}, token))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if resp.Msg.User.Image == "" {
		t.Error("user turn lost its image")
	}

	last := env.gen.calls()[0].Contents[1]
	if len(last.Parts) != 2 || last.Parts[0].InlineData == nil || last.Parts[1].Text != conversation.DefaultImagePrompt {
		t.Errorf("unexpected pending parts %+v", last.Parts)
	}
}

func TestSendMessageHistoryWindow(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	for i := 0; i < 8; i++ {
		env.gen.queue("ответ", nil)
		if _, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "вопрос"}, token)); err != nil {
			t.Fatalf("SendMessage %d failed: %v", i, err)
		}
	}

	calls := env.gen.calls()
	last := calls[len(calls)-1]
	// 12 windowed turns plus the pending one.
	if len(last.Contents) != conversation.DefaultWindow+1 {
		t.Errorf("contents = %d, want %d", len(last.Contents), conversation.DefaultWindow+1)
	}
}

func TestSendMessageModelFailure(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
	}{
		{"missing credential", []error{gateway.ErrMissingCredential}, 1},
		{"upstream error is not retried", []error{&gateway.UpstreamError{Status: 400, Body: `{"error":"bad"}`}}, 1},
		{"network errors exhaust retries", []error{
			&gateway.NetworkError{Err: context.DeadlineExceeded},
			&gateway.NetworkError{Err: context.DeadlineExceeded},
			&gateway.NetworkError{Err: context.DeadlineExceeded},
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			_, token := env.startSession(t)
			for _, err := range tt.errs {
				env.gen.queue("", err)
			}

			resp, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "Привет"}, token))
			if err != nil {
				t.Fatalf("SendMessage should not fail the RPC: %v", err)
			}
			if resp.Msg.Reply.Text != ErrorReplyText {
				t.Errorf("reply = %q, want fallback", resp.Msg.Reply.Text)
			}
			if resp.Msg.Error == "" {
				t.Error("expected error field to be set")
			}
			if got := len(env.gen.calls()); got != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestSendMessageRetriesNetworkError(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	env.gen.queue("", &gateway.NetworkError{Err: context.DeadlineExceeded})
	env.gen.queue("Готово", nil)

	resp, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "Привет"}, token))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if resp.Msg.Reply.Text != "Готово" || resp.Msg.Error != "" {
		t.Errorf("unexpected response %+v", resp.Msg)
	}
	if got := len(env.gen.calls()); got != 2 {
		t.Errorf("model calls = %d, want 2", got)
	}
}

func TestSendMessageEmptyReply(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	env.gen.queue("[NEEDS_SUBSCRIPTION]", nil)

	resp, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "Меню на месяц"}, token))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !resp.Msg.Reply.NeedsSubscription || resp.Msg.Reply.Text == "" {
		t.Errorf("unexpected reply %+v", resp.Msg.Reply)
	}
}

func TestSendMessageRejects(t *testing.T) {
	env := setupTestServer(t)
	sessionID, token := env.startSession(t)
	ghost, _ := env.jwt.Generate("no-such-session")

	t.Run("empty turn", func(t *testing.T) {
		_, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "   "}, token))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("bad image", func(t *testing.T) {
		_, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Image: "data:text/plain;base64,aGk="}, token))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := env.chat.SendMessage(context.Background(), connect.NewRequest(&SendMessageRequest{Text: "hi"}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "hi"}, ghost))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("busy", func(t *testing.T) {
		sess, err := env.sessions.Get(sessionID)
		if err != nil {
			t.Fatalf("session lookup failed: %v", err)
		}
		if err := sess.TryBegin(session.StreamChat); err != nil {
			t.Fatalf("TryBegin failed: %v", err)
		}
		defer sess.End(session.StreamChat)

		_, err = env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "hi"}, token))
		assertCode(t, err, connect.CodeAborted)
	})

	if len(env.gen.calls()) != 0 {
		t.Errorf("rejected sends must not reach the model")
	}
}

func TestQuickAction(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	env.gen.queue("Жил-был...", nil)

	resp, err := env.chat.QuickAction(context.Background(), authed(&QuickActionRequest{Action: "tell_story"}, token))
	if err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	if resp.Msg.User.Text != conversation.QuickActions["tell_story"] {
		t.Errorf("user turn = %q", resp.Msg.User.Text)
	}

	_, err = env.chat.QuickAction(context.Background(), authed(&QuickActionRequest{Action: "dance"}, token))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestUpdateProfileAndSubscribe(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	age, sick, tier := "3-5", true, "expired"
	resp, err := env.chat.UpdateProfile(context.Background(), authed(&UpdateProfileRequest{
		AgeBracket: &age, IsSick: &sick, Subscription: &tier,
	}, token))
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	want := models.Profile{AgeBracket: models.Age3To5, IsSick: true, Subscription: models.TierExpired}
	if resp.Msg.Profile != want {
		t.Errorf("profile = %+v, want %+v", resp.Msg.Profile, want)
	}

	env.gen.queue("ok", nil)
	if _, err := env.chat.SendMessage(context.Background(), authed(&SendMessageRequest{Text: "Меню"}, token)); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	prompt := env.gen.calls()[0].SystemInstruction
	if !strings.Contains(prompt, "ИСТЕКЛА") || !strings.Contains(prompt, "БОЛЕН") {
		t.Errorf("system instruction ignores the updated profile")
	}

	bad := "11-12"
	_, err = env.chat.UpdateProfile(context.Background(), authed(&UpdateProfileRequest{AgeBracket: &bad}, token))
	assertCode(t, err, connect.CodeInvalidArgument)

	sub, err := env.chat.Subscribe(context.Background(), authed(&SubscribeRequest{}, token))
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Msg.Profile.Subscription != models.TierActive {
		t.Errorf("subscription = %s, want active", sub.Msg.Profile.Subscription)
	}
	if sub.Msg.Reply.Text != profile.SubscribedMessage {
		t.Errorf("unexpected subscribe reply %q", sub.Msg.Reply.Text)
	}
}
