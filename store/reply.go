package store

import "context"

// Tone is the categorical style label for generated replies.
type Tone string

const (
	ToneRizz     Tone = "RIZZ"
	ToneFlirt    Tone = "FLIRT"
	ToneRomantic Tone = "ROMANTIC"
	ToneNSFW     Tone = "NSFW"
)

// IsValid reports whether t is a known tone.
func (t Tone) IsValid() bool {
	switch t {
	case ToneRizz, ToneFlirt, ToneRomantic, ToneNSFW:
		return true
	}
	return false
}

// Reply is one generated reply line. Replies are owned exclusively by their
// dialog and immutable once created; display order is created_ts ascending.
type Reply struct {
	ID  int32
	UID string

	CreatedTs int64

	DialogID int32
	Content  string
	Tone     Tone
}

type FindReply struct {
	ID       *int32
	UID      *string
	DialogID *int32
	Limit    *int
}

func (s *Store) CreateReply(ctx context.Context, create *Reply) (*Reply, error) {
	return s.driver.CreateReply(ctx, create)
}

// ListReplies returns replies ordered by created_ts ascending, then id.
func (s *Store) ListReplies(ctx context.Context, find *FindReply) ([]*Reply, error) {
	return s.driver.ListReplies(ctx, find)
}
