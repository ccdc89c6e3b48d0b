package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/rhuss/rinnsal/pkg/api"
)

func TestPushChannelRejectsInvalidMessages(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantParam string
	}{
		{"malformed json", `{"type":`, ""},
		{"missing request id", `{"type":"generate"}`, "request_id"},
		{"unknown type", `{"type":"pause","request_id":"x"}`, "type"},
	}

	c := dialWS(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.Write(ctx, websocket.MessageText, []byte(tt.raw)); err != nil {
				t.Fatalf("write: %v", err)
			}

			msg, ok := recvWS(t, c, 5*time.Second)
			if !ok {
				t.Fatal("no reply")
			}
			if msg.Type != api.MessageError || msg.Error == nil {
				t.Fatalf("reply = %+v, want error", msg)
			}
			if msg.Error.Type != api.ErrorTypeInvalidRequest {
				t.Errorf("error type = %q, want invalid_request", msg.Error.Type)
			}
			if msg.Error.Param != tt.wantParam {
				t.Errorf("param = %q, want %q", msg.Error.Param, tt.wantParam)
			}
		})
	}

	// The connection survives bad input.
	sendWS(t, c, api.ClientMessage{Type: api.MessageGenerate, RequestID: "int-after-errors"})
	msgs := collectUntil(t, c, "int-after-errors")["int-after-errors"]
	if got := chunkTexts(msgs); got != "hello" {
		t.Errorf("streamed %q after errors, want %q", got, "hello")
	}
}

func TestUnknownRecordIsNotFound(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1/generations/never-ran")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var body api.ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Error == nil || body.Error.Type != api.ErrorTypeNotFound {
		t.Errorf("error = %+v, want not_found", body.Error)
	}
}

func TestCancelUnknownOverHTTPIsBenign(t *testing.T) {
	resp := deleteURL(t, testEnv.BaseURL()+"/v1/generations/never-ran")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body := readBody(t, resp)
	if body != "{\"request_id\":\"never-ran\",\"cancelled\":false}\n" {
		t.Errorf("body = %q", body)
	}
}
