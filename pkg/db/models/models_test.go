package models

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/enums"
)

func TestEventIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (Event{}).IsExpired(now) {
		t.Fatal("event without expiry should never expire")
	}
	if !(Event{ExpiresAt: &past}).IsExpired(now) {
		t.Fatal("expected past expiry to be expired")
	}
	if (Event{ExpiresAt: &future}).IsExpired(now) {
		t.Fatal("expected future expiry to be open")
	}
}

func TestMediaItemVisibleTo(t *testing.T) {
	host := uuid.New()
	uploader := uuid.NewString()
	item := MediaItem{Privacy: enums.MediaPrivacyPrivate, UploaderID: uploader}

	if !item.VisibleTo(uploader, host) {
		t.Fatal("uploader should see private media")
	}
	if !item.VisibleTo(host.String(), host) {
		t.Fatal("host should see private media")
	}
	if item.VisibleTo(uuid.NewString(), host) || item.VisibleTo("", host) {
		t.Fatal("strangers should not see private media")
	}

	item.Privacy = enums.MediaPrivacyPublic
	if !item.VisibleTo("", host) {
		t.Fatal("public media is visible to everyone")
	}
}

func TestQuotaAccountRemaining(t *testing.T) {
	if got := (QuotaAccount{StorageLimitBytes: UnlimitedStorageBytes}).RemainingBytes(); got != UnlimitedStorageBytes {
		t.Fatalf("expected unlimited sentinel, got %d", got)
	}
	if got := (QuotaAccount{StorageUsedBytes: 95, StorageLimitBytes: 100}).RemainingBytes(); got != 5 {
		t.Fatalf("expected 5 remaining, got %d", got)
	}
	if got := (QuotaAccount{StorageUsedBytes: 120, StorageLimitBytes: 100}).RemainingBytes(); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}
