package platforms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// stubTransport swaps the shared client's transport for one test and
// restores it after.
func stubTransport(t *testing.T, fn roundTripperFunc) {
	t.Helper()
	orig := httpClient
	t.Cleanup(func() { httpClient = orig })
	httpClient = &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func TestMastodonPublish(t *testing.T) {
	ctx := context.Background()
	conn := domainConnection.Connection{
		Platform: domainPost.PlatformMastodon,
		Credentials: domainConnection.Credentials{
			AccessToken: "tok-123",
			ServerURL:   "https://mastodon.test/",
		},
	}

	var (
		gotURL  string
		gotAuth string
		gotBody []byte
	)
	stubTransport(t, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		gotAuth = req.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(req.Body)
		return jsonResponse(http.StatusOK, `{"id":"109876","url":"https://mastodon.test/@me/109876"}`), nil
	})

	result, err := NewMastodonPublisher().Publish(ctx, domainPost.Content{Text: "hello fediverse"}, conn)
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}

	if gotURL != "https://mastodon.test/api/v1/statuses" {
		t.Fatalf("unexpected URL: %q", gotURL)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if payload["status"] != "hello fediverse" {
		t.Fatalf("unexpected status payload: %#v", payload["status"])
	}

	if result.PlatformPostID != "109876" {
		t.Fatalf("unexpected post id: %q", result.PlatformPostID)
	}
	if result.URL != "https://mastodon.test/@me/109876" {
		t.Fatalf("unexpected url: %q", result.URL)
	}
}

func TestMastodonPublishMissingCredentials(t *testing.T) {
	_, err := NewMastodonPublisher().Publish(context.Background(), domainPost.Content{Text: "x"}, domainConnection.Connection{})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	platformErr, ok := err.(*domainPublisher.PlatformError)
	if !ok {
		t.Fatalf("expected *PlatformError, got %T", err)
	}
	if platformErr.Code != "MISSING_CREDENTIALS" {
		t.Fatalf("unexpected code: %q", platformErr.Code)
	}
}

func TestMastodonPublishServerError(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{
			AccessToken: "tok",
			ServerURL:   "https://mastodon.test",
		},
	}
	stubTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"The access token is invalid"}`), nil
	})

	_, err := NewMastodonPublisher().Publish(context.Background(), domainPost.Content{Text: "x"}, conn)
	if err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestTelegramPublish(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{
			AccessToken: "bot-token",
			ChatID:      "@mychannel",
		},
	}

	var gotURL string
	var gotBody []byte
	stubTransport(t, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		gotBody, _ = io.ReadAll(req.Body)
		return jsonResponse(http.StatusOK,
			`{"ok":true,"result":{"message_id":42,"chat":{"username":"mychannel"}}}`), nil
	})

	result, err := NewTelegramPublisher().Publish(context.Background(), domainPost.Content{Text: "hi"}, conn)
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}

	if gotURL != "https://api.telegram.org/botbot-token/sendMessage" {
		t.Fatalf("unexpected URL: %q", gotURL)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if payload["chat_id"] != "@mychannel" {
		t.Fatalf("unexpected chat_id: %#v", payload["chat_id"])
	}

	if result.PlatformPostID != "42" {
		t.Fatalf("unexpected post id: %q", result.PlatformPostID)
	}
	if result.URL != "https://t.me/mychannel/42" {
		t.Fatalf("unexpected url: %q", result.URL)
	}
}

func TestTelegramPublishAPIError(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{
			AccessToken: "bot-token",
			ChatID:      "@mychannel",
		},
	}
	stubTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"ok":false,"description":"Forbidden: bot was blocked by the user"}`), nil
	})

	_, err := NewTelegramPublisher().Publish(context.Background(), domainPost.Content{Text: "hi"}, conn)
	if err == nil {
		t.Fatal("expected error when ok=false")
	}
	platformErr, ok := err.(*domainPublisher.PlatformError)
	if !ok {
		t.Fatalf("expected *PlatformError, got %T", err)
	}
	if platformErr.Code != "API_ERROR" {
		t.Fatalf("unexpected code: %q", platformErr.Code)
	}
}

func TestWebhookPublishSignsBody(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{
			ServerURL: "https://hooks.test/publish",
			Secret:    "shhh",
		},
	}

	var gotSignature string
	var gotBody []byte
	stubTransport(t, func(req *http.Request) (*http.Response, error) {
		gotSignature = req.Header.Get("X-Postpilot-Signature")
		gotBody, _ = io.ReadAll(req.Body)
		return jsonResponse(http.StatusAccepted, `{}`), nil
	})

	result, err := NewWebhookPublisher().Publish(context.Background(),
		domainPost.Content{Text: "ping", MediaURLs: []string{"https://img.test/a.png"}}, conn)
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}
	if result.PlatformPostID == "" {
		t.Fatal("expected a delivery id")
	}

	mac := hmac.New(sha256.New, []byte("shhh"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Fatalf("signature mismatch: got %q, want %q", gotSignature, want)
	}

	var payload webhookPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if payload.Text != "ping" {
		t.Fatalf("unexpected text: %q", payload.Text)
	}
	if len(payload.MediaURLs) != 1 {
		t.Fatalf("unexpected media urls: %#v", payload.MediaURLs)
	}
}

func TestWebhookPublishNoSecretSkipsSignature(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{ServerURL: "https://hooks.test/publish"},
	}

	var hasSignature bool
	stubTransport(t, func(req *http.Request) (*http.Response, error) {
		hasSignature = req.Header.Get("X-Postpilot-Signature") != ""
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	if _, err := NewWebhookPublisher().Publish(context.Background(), domainPost.Content{Text: "x"}, conn); err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}
	if hasSignature {
		t.Fatal("expected no signature header without a secret")
	}
}

func TestWebhookPublishRejectedStatus(t *testing.T) {
	conn := domainConnection.Connection{
		Credentials: domainConnection.Credentials{ServerURL: "https://hooks.test/publish"},
	}
	stubTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream down`), nil
	})

	_, err := NewWebhookPublisher().Publish(context.Background(), domainPost.Content{Text: "x"}, conn)
	if err == nil {
		t.Fatal("expected error on 502")
	}
}
