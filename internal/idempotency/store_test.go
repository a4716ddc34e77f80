package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", 48*time.Hour)

	ctx := context.Background()
	key := KeyForCart("cart-1", 3)
	rec := s.NewRecord(key, "order-123", "cart-1")

	created, err := s.CreateIfNotExists(ctx, rec)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// a double click on the same cart version hits the same key
	created2, err := s.CreateIfNotExists(ctx, s.NewRecord(KeyForCart("cart-1", 3), "order-456", "cart-1"))
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record, got nil")
	}
	if got.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", got.Status)
	}
	if got.OrderID != "order-123" || got.CartID != "cart-1" {
		t.Fatalf("record mismatch: %+v", got)
	}

	if err := s.MarkDone(ctx, key, `{"order_id":"order-123"}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := mock.table[key]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	if rs, ok := item["response_status"].(*types.AttributeValueMemberN); !ok || rs.Value != "201" {
		t.Fatalf("response_status not set correctly: %+v", item["response_status"])
	}

	if err := s.MarkFailed(ctx, key, "publish failed"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item = mock.table[key]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", item["status"])
	}
	if n, ok := item["note"].(*types.AttributeValueMemberS); !ok || n.Value != "publish failed" {
		t.Fatalf("note not set, got %+v", item["note"])
	}
	if mock.updateCalls != 2 {
		t.Fatalf("expected 2 updates, got %d", mock.updateCalls)
	}
}

func TestGet_ExpiredRecordIsIgnored(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", time.Hour)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return start }

	if _, err := s.CreateIfNotExists(context.Background(), s.NewRecord("k1", "o1", "c1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.nowFunc = func() time.Time { return start.Add(2 * time.Hour) }
	rec, err := s.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected expired record to be ignored, got %+v", rec)
	}

	// the row is still there until TTL sweeps it; a new placement reclaims it
	created, err := s.CreateIfNotExists(context.Background(), s.NewRecord("k1", "o2", "c1"))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !created {
		t.Fatal("expected expired key to be reclaimed")
	}
	rec, err = s.Get(context.Background(), "k1")
	if err != nil || rec == nil || rec.OrderID != "o2" {
		t.Fatalf("expected reclaimed record for o2, got %+v (%v)", rec, err)
	}
}

func TestCreateIfNotExists_LiveKeyIsKept(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", time.Hour)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return start }
	ctx := context.Background()

	if _, err := s.CreateIfNotExists(ctx, s.NewRecord("k1", "o1", "c1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.nowFunc = func() time.Time { return start.Add(30 * time.Minute) }
	created, err := s.CreateIfNotExists(ctx, s.NewRecord("k1", "o2", "c1"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("a live key must not be overwritten")
	}
}

func TestKeyForRequest(t *testing.T) {
	if KeyForRequest("c1", "abc") == KeyForRequest("c2", "abc") {
		t.Fatal("the same header key on two carts must not collide")
	}
	if got := KeyForRequest("c1", "abc"); got != "cart:c1:key:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestKeyForCart(t *testing.T) {
	if KeyForCart("c1", 1) == KeyForCart("c1", 2) {
		t.Fatal("different cart versions must not share a key")
	}
	if got := KeyForCart("c1", 7); got != "cart:c1:v7" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestAttributevalueMarshal_Unmarshal(t *testing.T) {
	now := time.Now().UTC().Round(time.Second)
	rec := Record{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		OrderID:        "o1",
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, ok := m["expires_at"].(*types.AttributeValueMemberN); !ok {
		t.Fatalf("expires_at must be a number for TTL, got %T", m["expires_at"])
	}
	var out Record
	if err := attributevalue.UnmarshalMap(m, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IdempotencyKey != rec.IdempotencyKey || !out.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unmarshal mismatch: %+v", out)
	}
}
