package agent

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// replyCache remembers the reply sent for each provider message id so a
// redelivered webhook gets the same answer without a second generation.
// Redeliveries that arrive while the first generation is still running wait
// for it and share its reply.
type replyCache struct {
	entries  *cache.Cache
	inflight singleflight.Group
}

// newReplyCache returns nil when ttl is not positive, disabling deduplication.
func newReplyCache(ttl time.Duration) *replyCache {
	if ttl <= 0 {
		return nil
	}
	return &replyCache{entries: cache.New(ttl, 2*ttl)}
}

func (c *replyCache) get(messageID string) (string, bool) {
	if c == nil || messageID == "" {
		return "", false
	}
	v, ok := c.entries.Get(messageID)
	if !ok {
		return "", false
	}
	reply, ok := v.(string)
	return reply, ok
}

func (c *replyCache) put(messageID, reply string) {
	if c == nil || messageID == "" {
		return
	}
	c.entries.SetDefault(messageID, reply)
}

// resolve runs generate at most once per message id. A caller that did not
// run generate itself gets the shared text with OutcomeDuplicate. Only
// OutcomeReplied results are remembered past the in-flight call.
func (c *replyCache) resolve(messageID string, generate func() Reply) Reply {
	if c == nil || messageID == "" {
		return generate()
	}
	if text, ok := c.get(messageID); ok {
		return Reply{Text: text, Outcome: OutcomeDuplicate}
	}

	generated := false
	v, _, _ := c.inflight.Do(messageID, func() (any, error) {
		if text, ok := c.get(messageID); ok {
			return Reply{Text: text, Outcome: OutcomeDuplicate}, nil
		}
		generated = true
		reply := generate()
		if reply.Outcome == OutcomeReplied {
			c.put(messageID, reply.Text)
		}
		return reply, nil
	})

	reply := v.(Reply)
	if !generated {
		reply.Outcome = OutcomeDuplicate
	}
	return reply
}
