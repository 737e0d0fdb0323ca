package planner

import (
	"context"
	"time"

	"github.com/yanqian/ai-travel-planner/internal/domain/agent"
)

// SessionStore keeps sessions for ttl after their last save.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, bool, error)
	Save(ctx context.Context, session *Session, ttl time.Duration) error
}

// DocumentStore keeps rendered documents for ttl.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// Agent runs one instruction through the tool-calling model.
type Agent interface {
	Run(ctx context.Context, instruction string) (agent.Result, error)
}

// Renderer paginates report text into a document.
type Renderer interface {
	Render(title, clientName, content string) ([]byte, error)
}

// Guard is the destination policy gate.
type Guard interface {
	Check(text string) error
	BlockedDestinations() []string
	AllowedRegions() []string
}
