package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/tobyn/brandlens/internal/domain"
)

func TestChatGPTProvider_Complete(t *testing.T) {
	srv := chatCompletionServer(t, "Salesforce and HubSpot are the leading CRMs.", http.StatusOK)
	defer srv.Close()

	p := NewChatGPTProvider(&ProviderConfig{Model: "gpt-4o-mini", APIKey: "test", BaseURL: srv.URL})

	resp, err := p.Complete(context.Background(), "best crm tools")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Content != "Salesforce and HubSpot are the leading CRMs." {
		t.Errorf("unexpected content: %q", resp.Content)
	}
}

func TestChatGPTProvider_HTTPError(t *testing.T) {
	srv := chatCompletionServer(t, `{"error":{"message":"invalid api key","type":"auth"}}`, http.StatusUnauthorized)
	defer srv.Close()

	p := NewChatGPTProvider(&ProviderConfig{Model: "gpt-4o-mini", APIKey: "bad", BaseURL: srv.URL})

	if _, err := p.Complete(context.Background(), "best crm tools"); err == nil {
		t.Fatal("expected error on HTTP failure")
	}
}

func TestChatGPTProvider_EmptyContent(t *testing.T) {
	srv := chatCompletionServer(t, "", http.StatusOK)
	defer srv.Close()

	p := NewChatGPTProvider(&ProviderConfig{Model: "gpt-4o-mini", APIKey: "test", BaseURL: srv.URL})

	resp, err := p.Complete(context.Background(), "best crm tools")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Success {
		t.Error("expected Success=false for empty content")
	}
}

func TestChatGPTProvider_Platform(t *testing.T) {
	p := NewChatGPTProvider(&ProviderConfig{})
	if p.Platform() != domain.PlatformChatGPT {
		t.Errorf("unexpected platform %q", p.Platform())
	}
}
