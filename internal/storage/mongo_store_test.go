package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/brainshare/backend/internal/core"
)

func TestToBSON(t *testing.T) {
	got := toBSON(Filter{Eq("post_id", "p1"), Contains("name", "a.b")})
	want := bson.D{
		{Key: "post_id", Value: "p1"},
		{Key: "name", Value: bson.D{{Key: "$regex", Value: `a\.b`}, {Key: "$options", Value: "i"}}},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("toBSON() = %v, want %v", got, want)
	}
}

func TestRankPipeline(t *testing.T) {
	p := rankPipeline(nil, Derived{Name: "score", Minuend: "upVote", Subtrahend: "downVote"}, FindOptions{Skip: 5, Limit: 5})
	if len(p) != 5 {
		t.Fatalf("len(pipeline) = %d, want 5", len(p))
	}

	stages := []string{"$match", "$addFields", "$sort", "$skip", "$limit"}
	for i, s := range stages {
		if p[i][0].Key != s {
			t.Errorf("stage %d = %s, want %s", i, p[i][0].Key, s)
		}
	}

	add := fmt.Sprint(p[1])
	if !strings.Contains(add, "$subtract") || !strings.Contains(add, "$upVote") || !strings.Contains(add, "$downVote") {
		t.Errorf("$addFields stage = %s", add)
	}

	unbounded := rankPipeline(nil, Derived{Name: "score", Minuend: "a", Subtrahend: "b"}, FindOptions{})
	if len(unbounded) != 3 {
		t.Errorf("unbounded pipeline should have 3 stages, got %d", len(unbounded))
	}
}

func TestUpdateDoc(t *testing.T) {
	doc := updateDoc(Update{Set: map[string]any{"reported": true}, Inc: map[string]int64{"upVote": 1}})
	if len(doc) != 2 || doc[0].Key != "$set" || doc[1].Key != "$inc" {
		t.Errorf("updateDoc() = %v", doc)
	}
	if len(updateDoc(Update{})) != 0 {
		t.Error("empty update should produce an empty document")
	}
}

func TestTranslateErr(t *testing.T) {
	if !errors.Is(translateErr(mongo.ErrNoDocuments), core.ErrNotFound) {
		t.Error("ErrNoDocuments should map to ErrNotFound")
	}
	if !errors.Is(translateErr(context.DeadlineExceeded), core.ErrStoreUnavailable) {
		t.Error("deadline should map to ErrStoreUnavailable")
	}
	if !errors.Is(translateErr(mongo.ErrClientDisconnected), core.ErrStoreUnavailable) {
		t.Error("disconnected client should map to ErrStoreUnavailable")
	}
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	if !errors.Is(translateErr(dup), ErrDuplicateKey) {
		t.Error("duplicate key write error should map to ErrDuplicateKey")
	}
	if translateErr(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestUsesTLS(t *testing.T) {
	if !usesTLS("mongodb+srv://u:p@cluster0.example.net/") {
		t.Error("srv URIs use TLS")
	}
	if usesTLS("mongodb://localhost:27017") {
		t.Error("plain local URI should not force TLS")
	}
}
