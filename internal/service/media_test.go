package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
)

func TestEditImage(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	edited := &models.InlineData{MIMEType: "image/png", Data: []byte("edited-png")}
	env.studio.queue(edited, nil)

	resp, err := env.chat.EditImage(context.Background(), authed(&MediaRequest{Image: testImage(), Prompt: "Сделай ярче"}, token))
	if err != nil {
		t.Fatalf("EditImage failed: %v", err)
	}
	if resp.Msg.User.Text != "Измени фото: Сделай ярче" || resp.Msg.User.Image != testImage() {
		t.Errorf("user turn = %+v", resp.Msg.User)
	}
	if resp.Msg.Reply.Text != "Вот измененное фото:" || resp.Msg.Reply.Image != inline.Encode(edited) {
		t.Errorf("reply = %+v", resp.Msg.Reply)
	}
	if resp.Msg.Error != "" {
		t.Errorf("unexpected error field %q", resp.Msg.Error)
	}

	calls := env.studio.calls()
	if len(calls) != 1 || calls[0].kind != "edit" {
		t.Fatalf("studio calls = %+v", calls)
	}
	if calls[0].req.Model != DefaultOptions().ImageModel || calls[0].req.Prompt != "Сделай ярче" {
		t.Errorf("request = %+v", calls[0].req)
	}
	if !bytes.Equal(calls[0].req.Image.Data, []byte("fake-png-bytes")) {
		t.Errorf("photo not forwarded: %q", calls[0].req.Image.Data)
	}

	conv, err := env.chat.GetConversation(context.Background(), authed(&GetConversationRequest{}, token))
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if n := len(conv.Msg.Turns); n != 3 {
		t.Fatalf("turns = %d, want greeting + 2", n)
	}
}

func TestAnimatePhoto(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	video := &models.InlineData{MIMEType: "video/mp4", Data: []byte("mp4-bytes")}
	env.studio.queue(video, nil)

	resp, err := env.chat.AnimatePhoto(context.Background(), authed(&MediaRequest{Image: testImage()}, token))
	if err != nil {
		t.Fatalf("AnimatePhoto failed: %v", err)
	}
	if resp.Msg.User.Text != "Оживи это фото: Красивая анимация еды" {
		t.Errorf("default prompt not applied: %q", resp.Msg.User.Text)
	}
	if resp.Msg.Reply.Text != "Вот ваше видео!" || resp.Msg.Reply.Video != inline.Encode(video) {
		t.Errorf("reply = %+v", resp.Msg.Reply)
	}
	if resp.Msg.Reply.Image != "" {
		t.Errorf("video reply should carry no image")
	}

	calls := env.studio.calls()
	if len(calls) != 1 || calls[0].kind != "animate" || calls[0].req.Model != DefaultOptions().VideoModel {
		t.Errorf("studio calls = %+v", calls)
	}
}

func TestMediaFailures(t *testing.T) {
	tests := []struct {
		name      string
		call      func(env *testEnv, token string) (*connect.Response[SendMessageResponse], error)
		errs      []error
		wantText  string
		wantCalls int
	}{
		{
			name: "edit upstream error",
			call: func(env *testEnv, token string) (*connect.Response[SendMessageResponse], error) {
				return env.chat.EditImage(context.Background(), authed(&MediaRequest{Image: testImage()}, token))
			},
			errs:      []error{&gateway.UpstreamError{Status: 400, Body: "bad"}},
			wantText:  "Произошла ошибка при редактировании фото.",
			wantCalls: 1,
		},
		{
			name: "edit without image part",
			call: func(env *testEnv, token string) (*connect.Response[SendMessageResponse], error) {
				return env.chat.EditImage(context.Background(), authed(&MediaRequest{Image: testImage()}, token))
			},
			errs:      []error{gateway.ErrNoMedia},
			wantText:  "Произошла ошибка при редактировании фото.",
			wantCalls: 1,
		},
		{
			name: "video network errors are retried",
			call: func(env *testEnv, token string) (*connect.Response[SendMessageResponse], error) {
				return env.chat.AnimatePhoto(context.Background(), authed(&MediaRequest{Image: testImage()}, token))
			},
			errs: []error{
				&gateway.NetworkError{Err: context.DeadlineExceeded},
				&gateway.NetworkError{Err: context.DeadlineExceeded},
				&gateway.NetworkError{Err: context.DeadlineExceeded},
			},
			wantText:  "Произошла ошибка при генерации видео.",
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			_, token := env.startSession(t)
			for _, err := range tt.errs {
				env.studio.queue(nil, err)
			}

			resp, err := tt.call(env, token)
			if err != nil {
				t.Fatalf("media RPC should not fail: %v", err)
			}
			if resp.Msg.Reply.Text != tt.wantText {
				t.Errorf("reply = %q, want %q", resp.Msg.Reply.Text, tt.wantText)
			}
			if resp.Msg.Error == "" {
				t.Error("expected error field to be set")
			}
			if got := len(env.studio.calls()); got != tt.wantCalls {
				t.Errorf("studio calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestMediaRejects(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	_, err := env.chat.EditImage(context.Background(), authed(&MediaRequest{Image: "not-a-data-url"}, token))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = env.chat.AnimatePhoto(context.Background(), connect.NewRequest(&MediaRequest{Image: testImage()}))
	assertCode(t, err, connect.CodeUnauthenticated)

	if n := len(env.studio.calls()); n != 0 {
		t.Errorf("studio should not be called, got %d calls", n)
	}
	conv, err := env.chat.GetConversation(context.Background(), authed(&GetConversationRequest{}, token))
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	for _, turn := range conv.Msg.Turns {
		if strings.HasPrefix(turn.Text, "Измени фото") {
			t.Errorf("rejected request left a turn: %+v", turn)
		}
	}
}
